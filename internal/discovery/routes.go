package discovery

import (
	"github.com/gorilla/mux"

	"github.com/emberdating/ember-backend/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, authMiddleware *auth.Middleware) {
	api := router.PathPrefix("/api/v1/discovery").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/swipes", handler.Swipe).Methods("POST")
	api.HandleFunc("/feed", handler.Feed).Methods("GET")
	api.HandleFunc("/feed/version", handler.Version).Methods("GET")
	api.HandleFunc("/likers", handler.Likers).Methods("GET")
	if handler.hub != nil {
		api.HandleFunc("/ws", handler.hub.HandleWS).Methods("GET")
	}
}
