package app

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"plantai/api/internal/classify"
	"plantai/api/internal/store"
	"plantai/api/internal/util"
)

// allowedImageTypes maps accepted file extensions to their MIME fragments.
// Uploads must pass both the extension and content-type check.
var allowedImageTypes = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

// DiagnosisReport is the result of analyzing an uploaded image. It is not
// persisted; clients save it explicitly via SaveDiagnosisRecord.
type DiagnosisReport struct {
	Disease         string                 `json:"disease"`
	Confidence      float64                `json:"confidence"`
	Predictions     []store.PredictionPair `json:"predictions"`
	Recommendations []string               `json:"recommendations"`
	PlantInfo       classify.PlantInfo     `json:"plantInfo"`
	ImageURL        string                 `json:"imageUrl"`
}

// AnalyzeImage stores an uploaded image, runs the classifier over it, and
// returns the report. The stored image is removed again if classification
// fails; on success its URL is part of the report.
func (s *Service) AnalyzeImage(ctx context.Context, filename, contentType string, data []byte) (DiagnosisReport, error) {
	if len(data) == 0 {
		return DiagnosisReport{}, domainError(http.StatusBadRequest, "No image file provided")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedImageTypes[ext] || !allowedImageMime(contentType) {
		return DiagnosisReport{}, domainError(http.StatusBadRequest, "Only image files are allowed!")
	}

	name := fmt.Sprintf("image-%d-%s%s", time.Now().UnixMilli(), util.NewID(""), ext)
	imageURL, err := s.images.Put(ctx, name, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return DiagnosisReport{}, fmt.Errorf("store upload: %w", err)
	}

	result, err := s.classifier.Classify(ctx, data)
	if err != nil {
		_ = s.images.Remove(ctx, name)
		return DiagnosisReport{}, domainError(http.StatusInternalServerError, "Error analyzing image")
	}

	return DiagnosisReport{
		Disease:         result.Disease,
		Confidence:      result.Confidence,
		Predictions:     result.Predictions,
		Recommendations: result.Recommendations,
		PlantInfo:       classify.DefaultPlantInfo(),
		ImageURL:        imageURL,
	}, nil
}

func allowedImageMime(contentType string) bool {
	for _, kind := range []string{"jpeg", "jpg", "png", "gif"} {
		if strings.Contains(contentType, kind) {
			return true
		}
	}
	return false
}

// DiagnosisRecordInput carries a diagnosis a client wants to keep.
type DiagnosisRecordInput struct {
	Disease         string                 `json:"disease"`
	Confidence      float64                `json:"confidence"`
	Recommendations []string               `json:"recommendations"`
	Predictions     []store.PredictionPair `json:"predictions"`
	Notes           string                 `json:"notes"`
	ImageURL        string                 `json:"imageUrl"`
	Timestamp       *time.Time             `json:"timestamp"`
}

func (s *Service) SaveDiagnosisRecord(ctx context.Context, userID string, input DiagnosisRecordInput) (store.DiagnosisRecord, error) {
	if strings.TrimSpace(input.Disease) == "" {
		return store.DiagnosisRecord{}, domainError(http.StatusBadRequest, "Disease is required")
	}

	ts := time.Now().UTC()
	if input.Timestamp != nil {
		ts = *input.Timestamp
	}
	record := store.DiagnosisRecord{
		ID:              util.NewID("dx"),
		UserID:          userID,
		ImageURL:        input.ImageURL,
		Disease:         input.Disease,
		Confidence:      input.Confidence,
		Recommendations: input.Recommendations,
		Predictions:     input.Predictions,
		Notes:           input.Notes,
		Timestamp:       ts,
	}
	if err := s.store.SaveDiagnosis(ctx, record); err != nil {
		return store.DiagnosisRecord{}, err
	}
	return record, nil
}

func (s *Service) DiagnosisHistory(ctx context.Context, userID string) ([]store.DiagnosisRecord, error) {
	return s.store.ListDiagnoses(ctx, userID)
}

func (s *Service) GetDiagnosisRecord(ctx context.Context, userID, id string) (store.DiagnosisRecord, error) {
	return s.store.GetDiagnosis(ctx, id, userID)
}

func (s *Service) DeleteDiagnosisRecord(ctx context.Context, userID, id string) error {
	return s.store.DeleteDiagnosis(ctx, id, userID)
}

func (s *Service) DiagnosisOverview(ctx context.Context, userID string) (store.DiagnosisStats, error) {
	return s.store.DiagnosisStats(ctx, userID)
}
