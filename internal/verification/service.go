package verification

import (
	"context"
	"errors"
	"fmt"

	"github.com/emberdating/ember-backend/internal/profile"
)

var (
	// ErrNotEnrolled means the user has no face template yet; they must
	// enroll before verifying.
	ErrNotEnrolled = errors.New("no face template enrolled")

	// ErrEnrollmentRejected means the sidecar could not build a template
	// from the submitted photos.
	ErrEnrollmentRejected = errors.New("enrollment rejected")
)

// VerifyOutcome is the result of a liveness verification.
type VerifyOutcome struct {
	Verified   bool    `json:"verified"`
	Similarity float64 `json:"similarity"`
	Threshold  float64 `json:"threshold"`
	Reason     string  `json:"reason"`
}

// Service runs the enrollment and verification flows against the sidecar and
// persists the results on the profile.
type Service interface {
	// ScreenPhoto checks a candidate profile photo for exactly one usable
	// face before the client uploads it anywhere.
	ScreenPhoto(ctx context.Context, photo []byte, filename string) (*DetectResult, error)
	// Enroll builds a face template from the user's photos and stores it.
	Enroll(ctx context.Context, userID int64, photoURLs []string) error
	// Verify matches a live selfie against the stored template. A match
	// marks the profile verified and records the similarity as trust score.
	Verify(ctx context.Context, userID int64, selfie []byte, filename string) (*VerifyOutcome, error)
}

type service struct {
	client   *Client
	profiles profile.Store
}

func NewService(client *Client, profiles profile.Store) Service {
	return &service{client: client, profiles: profiles}
}

func (s *service) ScreenPhoto(ctx context.Context, photo []byte, filename string) (*DetectResult, error) {
	return s.client.DetectFace(ctx, photo, filename)
}

func (s *service) Enroll(ctx context.Context, userID int64, photoURLs []string) error {
	result, err := s.client.CreateTemplate(ctx, photoURLs)
	if err != nil {
		return err
	}
	if !result.Success || result.Template == "" {
		return ErrEnrollmentRejected
	}

	if err := s.profiles.SetFaceTemplate(ctx, userID, result.Template); err != nil {
		return fmt.Errorf("store face template: %w", err)
	}

	enrollmentsTotal.Inc()
	return nil
}

func (s *service) Verify(ctx context.Context, userID int64, selfie []byte, filename string) (*VerifyOutcome, error) {
	template, err := s.profiles.GetFaceTemplate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if template == "" {
		return nil, ErrNotEnrolled
	}

	result, err := s.client.VerifyLiveness(ctx, selfie, filename, template)
	if err != nil {
		return nil, err
	}

	if result.IsMatch {
		// Similarity becomes the trust score; downstream filters treat it
		// as a 0..1 confidence.
		score := result.Similarity
		if score < 0 {
			score = 0
		}
		if score > 1 {
			score = 1
		}
		if err := s.profiles.SetVerification(ctx, userID, score, true); err != nil {
			return nil, fmt.Errorf("store verification: %w", err)
		}
		verificationsTotal.WithLabelValues("accepted").Inc()
	} else {
		verificationsTotal.WithLabelValues("rejected").Inc()
	}

	return &VerifyOutcome{
		Verified:   result.IsMatch,
		Similarity: result.Similarity,
		Threshold:  result.Threshold,
		Reason:     result.Reason,
	}, nil
}
