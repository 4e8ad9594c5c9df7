package app

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"plantai/api/internal/classify"
	"plantai/api/internal/storage"
	"plantai/api/internal/store"
)

func uploadImage(t *testing.T, handler http.Handler, token, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/diagnosis/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestDiagnosisUploadReturnsReportAndKeepsImage(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	dir := t.TempDir()
	images, err := storage.NewLocalStore(dir)
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	svc.images = images
	svc.classifier = &fakeClassifier{result: classify.Result{
		Disease:    "late_blight",
		Confidence: 0.91,
		Predictions: []store.PredictionPair{
			{Disease: "late_blight", Confidence: 0.91},
			{Disease: "healthy", Confidence: 0.05},
		},
		Recommendations: []string{"Remove affected leaves immediately"},
	}}
	handler := newTestServer(svc).Handler()
	_, token := loginTestUser(t, svc, "gardener", "gardener@example.com")

	rr := uploadImage(t, handler, token, "leaf.jpg", "image/jpeg", []byte("fake image bytes"))
	if rr.Code != http.StatusOK {
		t.Fatalf("upload: status %d body=%s", rr.Code, rr.Body.String())
	}
	payload := parseBody(t, rr)
	diagnosis, _ := payload["diagnosis"].(map[string]any)
	if diagnosis["disease"] != "late_blight" {
		t.Fatalf("diagnosis payload: %v", diagnosis)
	}
	imageURL, _ := diagnosis["imageUrl"].(string)
	if imageURL == "" {
		t.Fatalf("no imageUrl in report: %v", diagnosis)
	}
	info, _ := diagnosis["plantInfo"].(map[string]any)
	if info["name"] != "Tomato Plant" {
		t.Fatalf("plantInfo missing: %v", diagnosis)
	}

	// The stored image survives a successful analysis.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("upload dir holds %d files, want 1", len(entries))
	}
}

func TestDiagnosisUploadRejectsNonImage(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	svc.images = testImageStore(t)
	handler := newTestServer(svc).Handler()
	_, token := loginTestUser(t, svc, "gardener", "gardener@example.com")

	rr := uploadImage(t, handler, token, "notes.txt", "text/plain", []byte("not an image"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rr.Code)
	}
	if parseBody(t, rr)["error"] != "Only image files are allowed!" {
		t.Fatalf("body: %s", rr.Body.String())
	}

	// A lying extension fails the content-type check.
	rr = uploadImage(t, handler, token, "script.jpg", "application/javascript", []byte("alert(1)"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("mismatched content type: status %d", rr.Code)
	}
}

func TestDiagnosisUploadWithoutFileReturns400(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	svc.images = testImageStore(t)
	handler := newTestServer(svc).Handler()
	_, token := loginTestUser(t, svc, "gardener", "gardener@example.com")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	writer.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/diagnosis/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rr.Code)
	}
	if parseBody(t, rr)["error"] != "No image file provided" {
		t.Fatalf("body: %s", rr.Body.String())
	}
}

func TestDiagnosisUploadCleansUpOnClassifierFailure(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	dir := t.TempDir()
	images, err := storage.NewLocalStore(dir)
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	svc.images = images
	svc.classifier = &fakeClassifier{err: errors.New("model crashed")}
	handler := newTestServer(svc).Handler()
	_, token := loginTestUser(t, svc, "gardener", "gardener@example.com")

	rr := uploadImage(t, handler, token, "leaf.jpg", "image/jpeg", []byte("fake image bytes"))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500 body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["error"] != "Error analyzing image" {
		t.Fatalf("body: %s", rr.Body.String())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("upload dir holds %d files after failed analysis, want 0", len(entries))
	}
}

func TestDiagnosisRecordLifecycle(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	handler := newTestServer(svc).Handler()
	_, token := loginTestUser(t, svc, "gardener", "gardener@example.com")
	_, otherToken := loginTestUser(t, svc, "botanist", "botanist@example.com")

	rr := doJSON(t, handler, http.MethodPost, "/api/diagnosis", token, map[string]any{
		"disease":         "late_blight",
		"confidence":      0.88,
		"recommendations": []string{"Remove affected leaves immediately"},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("save: status %d body=%s", rr.Code, rr.Body.String())
	}
	record, _ := parseBody(t, rr)["diagnosis"].(map[string]any)
	recordID, _ := record["id"].(string)
	if recordID == "" {
		t.Fatalf("save payload: %v", record)
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/diagnosis/history", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("history: status %d", rr.Code)
	}
	history, _ := parseBody(t, rr)["history"].([]any)
	if len(history) != 1 {
		t.Fatalf("history has %d records, want 1", len(history))
	}

	// Other users cannot read or delete the record.
	rr = doJSON(t, handler, http.MethodGet, "/api/diagnosis/"+recordID, otherToken, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("cross-user get: status %d, want 404", rr.Code)
	}
	rr = doJSON(t, handler, http.MethodDelete, "/api/diagnosis/"+recordID, otherToken, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("cross-user delete: status %d, want 404", rr.Code)
	}

	rr = doJSON(t, handler, http.MethodDelete, "/api/diagnosis/"+recordID, token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: status %d body=%s", rr.Code, rr.Body.String())
	}
	if parseBody(t, rr)["message"] != "Diagnosis deleted successfully" {
		t.Fatalf("body: %s", rr.Body.String())
	}
}

func TestDiagnosisRecordRequiresDisease(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	handler := newTestServer(svc).Handler()
	_, token := loginTestUser(t, svc, "gardener", "gardener@example.com")

	rr := doJSON(t, handler, http.MethodPost, "/api/diagnosis", token, map[string]any{
		"confidence": 0.5,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rr.Code)
	}
	if parseBody(t, rr)["error"] != "Disease is required" {
		t.Fatalf("body: %s", rr.Body.String())
	}
}

func TestDiagnosisStatsOverview(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	handler := newTestServer(svc).Handler()
	_, token := loginTestUser(t, svc, "gardener", "gardener@example.com")

	for _, disease := range []string{"healthy", "late_blight", "late_blight"} {
		doJSON(t, handler, http.MethodPost, "/api/diagnosis", token, map[string]any{
			"disease":    disease,
			"confidence": 0.8,
		})
	}

	rr := doJSON(t, handler, http.MethodGet, "/api/diagnosis/stats/overview", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rr.Code, rr.Body.String())
	}
	stats, _ := parseBody(t, rr)["stats"].(map[string]any)
	if total, _ := stats["totalDiagnoses"].(float64); total != 3 {
		t.Fatalf("totalDiagnoses %v, want 3", total)
	}
	if stats["mostCommonDisease"] != "late_blight" {
		t.Fatalf("mostCommonDisease %v", stats["mostCommonDisease"])
	}
}
