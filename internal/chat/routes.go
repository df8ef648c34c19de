package chat

import (
	"github.com/gorilla/mux"

	"github.com/emberdating/ember-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/chats").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("", handler.ListChannels).Methods("GET")
	api.HandleFunc("/with/{userId}", handler.GetChannelForPair).Methods("GET")
}
