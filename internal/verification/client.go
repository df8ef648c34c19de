// Package verification talks to the face-detection and liveness sidecar and
// folds its decisions into profile trust state.
package verification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	// DecisionAccepted and DecisionRejected are the sidecar's verdicts.
	DecisionAccepted = "ACCEPTED"
	DecisionRejected = "REJECTED"

	// MinEnrollPhotos is the smallest photo set the sidecar will build a
	// template from.
	MinEnrollPhotos = 4
)

// ErrSidecarUnavailable wraps transport failures to the sidecar.
var ErrSidecarUnavailable = errors.New("verification sidecar unavailable")

// Client is an HTTP client for the face sidecar.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// HealthStatus is the sidecar's health report.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Model   string `json:"model"`
}

// DetectedFace is one face the sidecar found in an image.
type DetectedFace struct {
	BBox  [4]int  `json:"bbox"`
	Score float64 `json:"score"`
}

// DetectResult is the outcome of a face-detection pass.
type DetectResult struct {
	Decision   string         `json:"decision"`
	FacesCount int            `json:"faces_count"`
	Faces      []DetectedFace `json:"faces"`
	Message    string         `json:"message"`
}

// Accepted reports whether the image passed detection.
func (r *DetectResult) Accepted() bool {
	return r.Decision == DecisionAccepted
}

// TemplateResult carries the enrollment template the sidecar built.
type TemplateResult struct {
	Success         bool   `json:"success"`
	Template        string `json:"template"`
	PhotosProcessed int    `json:"photos_processed"`
}

// LivenessResult is the outcome of matching a live selfie against a template.
type LivenessResult struct {
	IsMatch        bool    `json:"isMatch"`
	Similarity     float64 `json:"similarity"`
	Threshold      float64 `json:"threshold"`
	DetectionScore float64 `json:"detectionScore"`
	Reason         string  `json:"reason"`
}

// Health checks the sidecar.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}

	var status HealthStatus
	if err := c.do(req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// DetectFace uploads one image and returns the detection verdict.
func (c *Client) DetectFace(ctx context.Context, image []byte, filename string) (*DetectResult, error) {
	body, contentType, err := imageForm(image, filename, nil)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect-face", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var result DetectResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateTemplate asks the sidecar to build an enrollment template from the
// given photo URLs. The sidecar requires at least MinEnrollPhotos.
func (c *Client) CreateTemplate(ctx context.Context, photoURLs []string) (*TemplateResult, error) {
	if len(photoURLs) < MinEnrollPhotos {
		return nil, fmt.Errorf("at least %d photos required, got %d", MinEnrollPhotos, len(photoURLs))
	}

	payload, err := json.Marshal(map[string]interface{}{"photo_urls": photoURLs})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create-template", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result TemplateResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyLiveness matches a live selfie against a stored template.
func (c *Client) VerifyLiveness(ctx context.Context, image []byte, filename, template string) (*LivenessResult, error) {
	body, contentType, err := imageForm(image, filename, map[string]string{"template": template})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify-liveness", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	var result LivenessResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type sidecarError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSidecarUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrSidecarUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var se sidecarError
		if json.Unmarshal(raw, &se) == nil && se.Message != "" {
			return fmt.Errorf("sidecar: %s: %s", se.Error, se.Message)
		}
		return fmt.Errorf("sidecar: unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("sidecar: decoding response: %w", err)
	}
	return nil
}

func imageForm(image []byte, filename string, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}
