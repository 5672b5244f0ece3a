package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func NewRouter(api *API) *mux.Router {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(writeNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(writeMethodNotAllowed)

	router.HandleFunc("/healthz", api.HandleHealth).Methods(http.MethodGet)

	authRoutes := router.PathPrefix("/api/auth").Subrouter()
	authRoutes.HandleFunc("/register/", api.HandleRegister).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login/", api.HandleLogin).Methods(http.MethodPost)
	authRoutes.HandleFunc("/token/refresh/", api.HandleRefresh).Methods(http.MethodPost)
	authRoutes.Handle("/user/", api.requireAuth(http.HandlerFunc(api.HandleCurrentUser))).Methods(http.MethodGet)

	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(api.requireAuth)
	protected.HandleFunc("/genres/", api.HandleGenres).Methods(http.MethodGet)
	protected.HandleFunc("/questions/random/", api.HandleRandomQuestions).Methods(http.MethodGet)
	protected.HandleFunc("/questions/incorrect/", api.HandleIncorrectQuestions).Methods(http.MethodGet)
	protected.HandleFunc("/questions/random-all/", api.HandleRandomAll).Methods(http.MethodGet)
	protected.HandleFunc("/progress/sessions/", api.HandleSaveSession).Methods(http.MethodPost)
	protected.Handle("/admin/questions/bulk-update/", api.requireStaff(http.HandlerFunc(api.HandleBulkUpdateQuestions))).Methods(http.MethodPost)

	return router
}
