package verification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"service": "face-detection-api",
			"model":   "insightface-buffalo_l",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	status, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "insightface-buffalo_l", status.Model)
}

func TestClientDetectFace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/detect-face", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "selfie.jpg", header.Filename)

		json.NewEncoder(w).Encode(DetectResult{
			Decision:   DecisionAccepted,
			FacesCount: 1,
			Faces:      []DetectedFace{{BBox: [4]int{10, 10, 90, 110}, Score: 0.92}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	result, err := client.DetectFace(context.Background(), []byte("jpeg-bytes"), "selfie.jpg")
	require.NoError(t, err)
	assert.True(t, result.Accepted())
	assert.Equal(t, 1, result.FacesCount)
}

func TestClientCreateTemplate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/create-template", r.URL.Path)

		var body struct {
			PhotoURLs []string `json:"photo_urls"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.PhotoURLs, 4)

		json.NewEncoder(w).Encode(TemplateResult{
			Success:         true,
			Template:        "dGVtcGxhdGU=",
			PhotosProcessed: 4,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	urls := []string{"u1", "u2", "u3", "u4"}
	result, err := client.CreateTemplate(context.Background(), urls)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "dGVtcGxhdGU=", result.Template)
}

func TestClientCreateTemplateRequiresMinPhotos(t *testing.T) {
	client := NewClient("http://unused", time.Second)
	_, err := client.CreateTemplate(context.Background(), []string{"u1", "u2"})
	assert.Error(t, err)
}

func TestClientVerifyLiveness(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/verify-liveness", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "dGVtcGxhdGU=", r.FormValue("template"))

		json.NewEncoder(w).Encode(LivenessResult{
			IsMatch:    true,
			Similarity: 0.81,
			Threshold:  0.35,
			Reason:     "Face matches template",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	result, err := client.VerifyLiveness(context.Background(), []byte("jpeg-bytes"), "live.jpg", "dGVtcGxhdGU=")
	require.NoError(t, err)
	assert.True(t, result.IsMatch)
	assert.InDelta(t, 0.81, result.Similarity, 1e-9)
}

func TestClientSidecarErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "Face detection failed",
			"message": "Could not detect face in photos: [2]",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.CreateTemplate(context.Background(), []string{"u1", "u2", "u3", "u4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not detect face")
}

func TestClientUnreachableSidecar(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := client.Health(context.Background())
	assert.ErrorIs(t, err, ErrSidecarUnavailable)
}
