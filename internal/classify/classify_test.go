package classify

import (
	"context"
	"math/rand"
	"testing"
)

func TestMockClassifierShape(t *testing.T) {
	c := NewMockClassifier(rand.New(rand.NewSource(1)))

	result, err := c.Classify(context.Background(), []byte("fake-image"))
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if len(result.Predictions) != len(DiseaseClasses) {
		t.Fatalf("got %d predictions, want %d", len(result.Predictions), len(DiseaseClasses))
	}
	if result.Disease != result.Predictions[0].Disease {
		t.Errorf("Disease %q is not the top prediction %q", result.Disease, result.Predictions[0].Disease)
	}
	if result.Confidence != result.Predictions[0].Confidence {
		t.Errorf("Confidence %v is not the top prediction's %v", result.Confidence, result.Predictions[0].Confidence)
	}
	if len(result.Recommendations) == 0 {
		t.Error("no recommendations for predicted disease")
	}
}

func TestMockClassifierConfidenceBands(t *testing.T) {
	c := NewMockClassifier(rand.New(rand.NewSource(7)))
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		result, err := c.Classify(ctx, nil)
		if err != nil {
			t.Fatalf("Classify: %v", err)
		}
		seen[result.Disease] = true

		// Exactly one class lands in the high band; the rest stay under 0.2.
		if result.Confidence < 0.7 || result.Confidence >= 1.0 {
			t.Fatalf("top confidence %v outside [0.7, 1.0)", result.Confidence)
		}
		for i := 1; i < len(result.Predictions); i++ {
			p := result.Predictions[i]
			if p.Confidence > result.Predictions[i-1].Confidence {
				t.Fatalf("predictions not sorted descending: %+v", result.Predictions)
			}
			if p.Confidence >= 0.7 {
				t.Fatalf("second class %q also in the high band: %v", p.Disease, p.Confidence)
			}
		}
	}
	if len(seen) < 2 {
		t.Errorf("classifier always picked the same class across 50 runs: %v", seen)
	}
}

func TestMockClassifierHonorsContext(t *testing.T) {
	c := NewMockClassifier(rand.New(rand.NewSource(1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.Classify(ctx, nil); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestRecommendationsFallback(t *testing.T) {
	for _, disease := range DiseaseClasses {
		if len(Recommendations(disease)) == 0 {
			t.Errorf("no recommendations for %q", disease)
		}
	}
	generic := Recommendations("mystery_wilt")
	if len(generic) == 0 {
		t.Fatal("no generic recommendations for unknown disease")
	}
}
