package server

import (
	"net/http"
	"strings"

	"github.com/golang/glog"

	"elearning-quiz/internal/store"
)

func (a *API) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var request registerRequest
	if err := decodeJSONBody(r, &request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	email := strings.TrimSpace(request.Email)
	if !isEmail(email) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "a valid email is required"})
		return
	}

	user, err := a.store.CreateUser(r.Context(), store.NewUser{
		Email:    email,
		Username: request.Username,
		Password: request.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	a.writeAuthResponse(w, http.StatusCreated, user)
}

func (a *API) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var request loginRequest
	if err := decodeJSONBody(r, &request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(request.Email) == "" || request.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}

	user, err := a.store.Authenticate(r.Context(), request.Email, request.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	a.writeAuthResponse(w, http.StatusOK, user)
}

func (a *API) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var request refreshRequest
	if err := decodeJSONBody(r, &request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if strings.TrimSpace(request.Refresh) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "refresh is required"})
		return
	}

	access, err := a.tokens.Refresh(strings.TrimSpace(request.Refresh))
	if err != nil {
		glog.V(2).Infof("rejected refresh token: %v", err)
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "token is invalid or expired"})
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Access: access})
}

func (a *API) HandleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	user, err := a.store.GetUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (a *API) writeAuthResponse(w http.ResponseWriter, statusCode int, user store.User) {
	tokens, err := a.tokens.Issue(user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, statusCode, authResponse{
		User:   toUserResponse(user),
		Tokens: tokens,
	})
}
