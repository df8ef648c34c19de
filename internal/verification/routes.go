package verification

import (
	"github.com/gorilla/mux"

	"github.com/emberdating/ember-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/verification").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/screen", handler.Screen).Methods("POST")
	api.HandleFunc("/enroll", handler.Enroll).Methods("POST")
	api.HandleFunc("/verify", handler.Verify).Methods("POST")
}
