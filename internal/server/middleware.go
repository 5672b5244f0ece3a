package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang/glog"
)

type contextKey int

const userIDKey contextKey = iota

func withUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func userIDFrom(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

// requireAuth rejects requests without a valid bearer access token.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication credentials were not provided"})
			return
		}

		userID, err := a.tokens.ParseAccess(strings.TrimSpace(token))
		if err != nil {
			glog.V(2).Infof("rejected access token for %s: %v", r.URL.Path, err)
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "token is invalid or expired"})
			return
		}

		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
	})
}

// requireStaff must run after requireAuth.
func (a *API) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication credentials were not provided"})
			return
		}

		user, err := a.store.GetUser(r.Context(), userID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !user.IsStaff {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "staff access required"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
