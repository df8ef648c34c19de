package discovery

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/emberdating/ember-backend/internal/auth"
	"github.com/emberdating/ember-backend/internal/common/utils"
)

// Handler exposes the discovery engine over HTTP.
type Handler struct {
	svc Service
	hub *Hub
}

func NewHandler(svc Service, hub *Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// Swipe handles POST /swipes.
func (h *Handler) Swipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req SwipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.svc.RecordSwipe(r.Context(), userID, req.TargetUserID, SwipeAction(req.Action))
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadySwiped):
			// Benign no-op: the original decision stands.
			utils.RespondWithData(w, http.StatusOK, SwipeResponse{Recorded: false})
		case errors.Is(err, ErrInvalidSwipe):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrMatchCreationFailed):
			utils.RespondWithError(w, http.StatusConflict, "Could not complete match, please retry")
		case errors.Is(err, ErrDependencyUnavailable):
			utils.RespondWithError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to record swipe")
		}
		return
	}

	resp := SwipeResponse{Recorded: true, Matched: outcome.Match != nil, Match: outcome.Match}
	utils.RespondWithData(w, http.StatusOK, resp)
}

// Feed handles GET /feed.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	limit := queryInt(r, "limit", 0)

	feed, err := h.svc.BuildFeed(r.Context(), userID)
	if err != nil {
		h.respondFeedError(w, err)
		return
	}

	candidates, err := feed.Next(r.Context(), limit)
	if err != nil && !errors.Is(err, io.EOF) {
		h.respondFeedError(w, err)
		return
	}

	version, err := h.svc.FeedVersion(r.Context(), userID)
	if err != nil {
		h.respondFeedError(w, err)
		return
	}

	if candidates == nil {
		candidates = []*ScoredCandidate{}
	}
	utils.RespondWithData(w, http.StatusOK, FeedResponse{
		Candidates: candidates,
		Version:    version,
		HasMore:    feed.HasMore(),
	})
}

// Version handles GET /feed/version.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	version, err := h.svc.FeedVersion(r.Context(), userID)
	if err != nil {
		h.respondFeedError(w, err)
		return
	}

	utils.RespondWithData(w, http.StatusOK, FeedVersionResponse{Version: version})
}

// Likers handles GET /likers.
func (h *Handler) Likers(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	filters := LikerFilters{
		AgeMin:        queryInt(r, "age_min", 0),
		AgeMax:        queryInt(r, "age_max", 0),
		HeightMinCM:   queryInt(r, "height_min_cm", 0),
		HeightMaxCM:   queryInt(r, "height_max_cm", 0),
		TrustScoreMin: queryFloat(r, "trust_score_min", 0),
		MatchScoreMin: queryFloat(r, "match_score_min", 0),
	}

	page, err := h.svc.Likers(r.Context(), userID, r.URL.Query().Get("cursor"), filters)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCursor), errors.Is(err, ErrInvalidViewer):
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrDependencyUnavailable):
			utils.RespondWithError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load likers")
		}
		return
	}

	utils.RespondWithData(w, http.StatusOK, page)
}

func (h *Handler) respondFeedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidViewer):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDependencyUnavailable):
		utils.RespondWithError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to build feed")
	}
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}
