package chat

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/emberdating/ember-backend/internal/auth"
	"github.com/emberdating/ember-backend/internal/common/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	channels, err := h.service.ListChannels(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list chats")
		return
	}

	utils.RespondWithData(w, http.StatusOK, channels)
}

func (h *Handler) GetChannelForPair(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	vars := mux.Vars(r)
	otherID, err := strconv.ParseInt(vars["userId"], 10, 64)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	channel, err := h.service.GetChannelForPair(r.Context(), userID, otherID)
	if err != nil {
		switch {
		case errors.Is(err, ErrChannelNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "No chat with this user")
		case errors.Is(err, ErrInvalidUser):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get chat")
		}
		return
	}

	utils.RespondWithData(w, http.StatusOK, channel)
}
