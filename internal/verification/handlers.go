package verification

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/emberdating/ember-backend/internal/auth"
	"github.com/emberdating/ember-backend/internal/common/utils"
	"github.com/emberdating/ember-backend/internal/profile"
)

// maxSelfieBytes caps the selfie upload size.
const maxSelfieBytes = 10 << 20

type EnrollRequest struct {
	PhotoURLs []string `json:"photo_urls" validate:"required,min=4,dive,url"`
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Enroll handles POST /enroll.
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Enroll(r.Context(), userID, req.PhotoURLs); err != nil {
		switch {
		case errors.Is(err, ErrEnrollmentRejected):
			utils.RespondWithError(w, http.StatusUnprocessableEntity, "Could not build a face template from the submitted photos")
		case errors.Is(err, ErrSidecarUnavailable):
			utils.RespondWithError(w, http.StatusServiceUnavailable, "Verification service temporarily unavailable")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Enrollment failed")
		}
		return
	}

	utils.RespondWithMessage(w, http.StatusOK, "Face template enrolled")
}

// Screen handles POST /screen with a multipart photo upload. It reports the
// sidecar's verdict without persisting anything, so clients can reject
// unusable profile photos before uploading them.
func (h *Handler) Screen(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxSelfieBytes); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing photo file")
		return
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, maxSelfieBytes))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Could not read photo")
		return
	}

	result, err := h.svc.ScreenPhoto(r.Context(), photo, header.Filename)
	if err != nil {
		if errors.Is(err, ErrSidecarUnavailable) {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "Verification service temporarily unavailable")
		} else {
			utils.RespondWithError(w, http.StatusInternalServerError, "Photo screening failed")
		}
		return
	}

	utils.RespondWithData(w, http.StatusOK, result)
}

// Verify handles POST /verify with a multipart selfie upload.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxSelfieBytes); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("selfie")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing selfie file")
		return
	}
	defer file.Close()

	selfie, err := io.ReadAll(io.LimitReader(file, maxSelfieBytes))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Could not read selfie")
		return
	}

	outcome, err := h.svc.Verify(r.Context(), userID, selfie, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotEnrolled):
			utils.RespondWithError(w, http.StatusPreconditionFailed, "Enroll a face template before verifying")
		case errors.Is(err, profile.ErrProfileNotFound):
			utils.RespondWithError(w, http.StatusNotFound, "Profile not found")
		case errors.Is(err, ErrSidecarUnavailable):
			utils.RespondWithError(w, http.StatusServiceUnavailable, "Verification service temporarily unavailable")
		default:
			utils.RespondWithError(w, http.StatusInternalServerError, "Verification failed")
		}
		return
	}

	utils.RespondWithData(w, http.StatusOK, outcome)
}
