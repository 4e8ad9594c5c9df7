package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"plantai/api/internal/store"
	"plantai/api/internal/util"
)

// PlantInput carries plant attributes from the HTTP layer. Nil pointers on
// update mean "leave unchanged".
type PlantInput struct {
	Name        *string
	Species     *string
	Location    *string
	PlantedDate *time.Time
	Notes       *string
}

func (s *Service) CreatePlant(ctx context.Context, userID string, input PlantInput) (store.Plant, error) {
	name := ""
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
	}
	if name == "" {
		return store.Plant{}, domainError(http.StatusBadRequest, "Plant name is required")
	}

	now := time.Now().UTC()
	plant := store.Plant{
		ID:               util.NewID("plant"),
		UserID:           userID,
		Name:             name,
		Species:          "Unknown",
		Location:         "Unknown",
		PlantedDate:      now,
		HealthStatus:     store.HealthUnknown,
		DiagnosisHistory: []store.DiagnosisEntry{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if input.Species != nil && strings.TrimSpace(*input.Species) != "" {
		plant.Species = strings.TrimSpace(*input.Species)
	}
	if input.Location != nil && strings.TrimSpace(*input.Location) != "" {
		plant.Location = strings.TrimSpace(*input.Location)
	}
	if input.PlantedDate != nil {
		plant.PlantedDate = *input.PlantedDate
	}
	if input.Notes != nil {
		plant.Notes = *input.Notes
	}

	if err := s.store.CreatePlant(ctx, plant); err != nil {
		return store.Plant{}, err
	}
	return plant, nil
}

func (s *Service) ListPlants(ctx context.Context, userID string) ([]store.Plant, error) {
	return s.store.ListPlants(ctx, userID)
}

func (s *Service) GetPlant(ctx context.Context, userID, plantID string) (store.Plant, error) {
	return s.store.GetPlant(ctx, plantID, userID)
}

func (s *Service) UpdatePlant(ctx context.Context, userID, plantID string, input PlantInput) (store.Plant, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return store.Plant{}, domainError(http.StatusBadRequest, "Plant name cannot be empty")
	}
	return s.store.UpdatePlant(ctx, plantID, userID, store.PlantFields{
		Name:        input.Name,
		Species:     input.Species,
		Location:    input.Location,
		PlantedDate: input.PlantedDate,
		Notes:       input.Notes,
	})
}

func (s *Service) DeletePlant(ctx context.Context, userID, plantID string) (store.Plant, error) {
	return s.store.DeletePlant(ctx, plantID, userID)
}

// AddPlantDiagnosis appends a diagnosis to a plant's history and recomputes
// its health status from the new entry.
func (s *Service) AddPlantDiagnosis(ctx context.Context, userID, plantID, disease string, confidence float64, imageURL, notes string) (store.Plant, error) {
	if strings.TrimSpace(disease) == "" {
		return store.Plant{}, domainError(http.StatusBadRequest, "Disease is required")
	}
	if confidence < 0 || confidence > 1 {
		return store.Plant{}, domainError(http.StatusBadRequest, "Confidence must be between 0 and 1")
	}

	entry := store.DiagnosisEntry{
		ID:         util.NewID("diag"),
		Disease:    disease,
		Confidence: confidence,
		ImageURL:   imageURL,
		Notes:      notes,
		CreatedAt:  time.Now().UTC(),
	}
	return s.store.AppendDiagnosis(ctx, plantID, userID, entry)
}

func (s *Service) PlantDiagnosisHistory(ctx context.Context, userID, plantID string) ([]store.DiagnosisEntry, error) {
	plant, err := s.store.GetPlant(ctx, plantID, userID)
	if err != nil {
		return nil, err
	}
	return plant.DiagnosisHistory, nil
}

func (s *Service) SearchPlants(ctx context.Context, userID, query string) ([]store.Plant, error) {
	return s.store.SearchPlants(ctx, userID, query)
}

func (s *Service) PlantsByHealthStatus(ctx context.Context, userID, status string) ([]store.Plant, error) {
	switch status {
	case store.HealthUnknown, store.HealthHealthy, store.HealthDiseased, store.HealthSuspicious:
	default:
		return nil, domainError(http.StatusBadRequest, "Invalid health status")
	}
	return s.store.PlantsByHealthStatus(ctx, userID, status)
}

func (s *Service) PlantHealthSummary(ctx context.Context, userID string) (store.HealthSummary, error) {
	return s.store.HealthSummary(ctx, userID)
}
