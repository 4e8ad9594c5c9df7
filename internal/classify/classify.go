// Package classify produces plant disease predictions from leaf images.
// The only implementation today is a mock that simulates a trained model;
// the interface keeps the upload flow ready for a real inference backend.
package classify

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"plantai/api/internal/store"
)

// DiseaseClasses is the label set of the simulated model, in model output
// order. "healthy" is a class like any other.
var DiseaseClasses = []string{
	"healthy",
	"bacterial_spot",
	"early_blight",
	"late_blight",
	"leaf_mold",
	"septoria_leaf_spot",
	"spider_mites",
	"target_spot",
	"yellow_leaf_curl_virus",
	"mosaic_virus",
}

// Result is a full classification: one confidence per class, sorted
// descending, plus the argmax and its care recommendations.
type Result struct {
	Disease         string
	Confidence      float64
	Predictions     []store.PredictionPair
	Recommendations []string
}

// Classifier turns an image into a disease prediction.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (Result, error)
}

// MockClassifier fabricates plausible predictions: one class drawn
// uniformly gets confidence in [0.7, 1.0), every other class gets [0, 0.2).
type MockClassifier struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockClassifier builds a classifier around the given source. Pass a
// seeded source in tests for deterministic output.
func NewMockClassifier(rng *rand.Rand) *MockClassifier {
	return &MockClassifier{rng: rng}
}

func (c *MockClassifier) Classify(ctx context.Context, image []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	chosen := DiseaseClasses[c.rng.Intn(len(DiseaseClasses))]
	predictions := make([]store.PredictionPair, 0, len(DiseaseClasses))
	for _, disease := range DiseaseClasses {
		confidence := c.rng.Float64() * 0.2
		if disease == chosen {
			confidence = 0.7 + c.rng.Float64()*0.3
		}
		predictions = append(predictions, store.PredictionPair{Disease: disease, Confidence: confidence})
	}
	c.mu.Unlock()

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Confidence > predictions[j].Confidence
	})

	top := predictions[0]
	return Result{
		Disease:         top.Disease,
		Confidence:      top.Confidence,
		Predictions:     predictions,
		Recommendations: Recommendations(top.Disease),
	}, nil
}
