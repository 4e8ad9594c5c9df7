package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"plantai/api/internal/accounts"
	"plantai/api/internal/store"
)

type HTTPServer struct {
	service        *Service
	corsOrigin     string
	uploadsDir     string
	maxUploadBytes int64
}

func NewHTTPServer(service *Service, corsOrigin, uploadsDir string, maxUploadBytes int64) *HTTPServer {
	return &HTTPServer{
		service:        service,
		corsOrigin:     corsOrigin,
		uploadsDir:     uploadsDir,
		maxUploadBytes: maxUploadBytes,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	parts := splitPath(r.URL.Path)

	// Locally stored upload images.
	if len(parts) == 2 && parts[0] == "uploads" && r.Method == http.MethodGet && s.uploadsDir != "" {
		http.ServeFile(w, r, filepath.Join(s.uploadsDir, filepath.Base(parts[1])))
		return
	}

	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	if parts[1] == "health" && r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "OK",
			"message":   "PlantAI API is running",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   "1.0.0",
		})
		return
	}

	if parts[1] == "ready" && r.Method == http.MethodGet {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.service.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}

	switch parts[1] {
	case "auth":
		s.handleAuth(w, r, parts[2:])
	case "plants":
		s.handlePlants(w, r, parts[2:])
	case "diagnosis":
		s.handleDiagnosis(w, r, parts[2:])
	case "community":
		s.handleCommunity(w, r, parts[2:])
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// ── auth ──

func (s *HTTPServer) handleAuth(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch {
	case r.Method == http.MethodPost && rest[0] == "register":
		var body struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		user, err := s.service.Register(r.Context(), body.Username, body.Email, body.Password)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "user": user})

	case r.Method == http.MethodPost && rest[0] == "login":
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		session, err := s.service.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"message":      "Login successful",
			"user":         session.User,
			"token":        session.Token,
			"refreshToken": session.RefreshToken,
		})

	case r.Method == http.MethodPost && rest[0] == "refresh":
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"user":         session.User,
			"token":        session.Token,
			"refreshToken": session.RefreshToken,
		})

	case r.Method == http.MethodGet && rest[0] == "profile":
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		user, err := s.service.Profile(r.Context(), session.User.ID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": user})

	case r.Method == http.MethodPut && rest[0] == "profile":
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			Username *string `json:"username"`
			Email    *string `json:"email"`
			Avatar   *string `json:"avatar"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		user, err := s.service.UpdateProfile(r.Context(), session.User.ID, accounts.ProfileUpdate{
			Username: body.Username,
			Email:    body.Email,
			Avatar:   body.Avatar,
		})
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Profile updated successfully",
			"user":    user,
		})

	case r.Method == http.MethodPost && rest[0] == "logout":
		if _, ok := s.requireSession(w, r); !ok {
			return
		}
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logout successful"})

	case r.Method == http.MethodGet && rest[0] == "verify":
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "valid": true, "user": session.User})

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// ── plants ──

func (s *HTTPServer) handlePlants(w http.ResponseWriter, r *http.Request, rest []string) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	userID := session.User.ID

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		plants, err := s.service.ListPlants(r.Context(), userID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "plants": plants, "total": len(plants)})

	case len(rest) == 0 && r.Method == http.MethodPost:
		input, err := decodePlantInput(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		plant, err := s.service.CreatePlant(r.Context(), userID, input)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"message": "Plant created successfully",
			"plant":   plant,
		})

	case len(rest) == 1 && rest[0] == "search" && r.Method == http.MethodGet:
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if query == "" {
			writeError(w, http.StatusBadRequest, "Search query is required")
			return
		}
		plants, err := s.service.SearchPlants(r.Context(), userID, query)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "query": query, "plants": plants, "total": len(plants)})

	case len(rest) == 2 && rest[0] == "health" && rest[1] == "summary" && r.Method == http.MethodGet:
		summary, err := s.service.PlantHealthSummary(r.Context(), userID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "summary": summary})

	case len(rest) == 2 && rest[0] == "status" && r.Method == http.MethodGet:
		plants, err := s.service.PlantsByHealthStatus(r.Context(), userID, rest[1])
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "plants": plants, "total": len(plants)})

	case len(rest) == 1 && r.Method == http.MethodGet:
		plant, err := s.service.GetPlant(r.Context(), userID, rest[0])
		if err != nil {
			writeNotFoundAs(w, err, "Plant not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "plant": plant})

	case len(rest) == 1 && r.Method == http.MethodPut:
		input, err := decodePlantInput(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		plant, err := s.service.UpdatePlant(r.Context(), userID, rest[0], input)
		if err != nil {
			writeNotFoundAs(w, err, "Plant not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Plant updated successfully",
			"plant":   plant,
		})

	case len(rest) == 1 && r.Method == http.MethodDelete:
		plant, err := s.service.DeletePlant(r.Context(), userID, rest[0])
		if err != nil {
			writeNotFoundAs(w, err, "Plant not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Plant deleted successfully",
			"plant":   plant,
		})

	case len(rest) == 2 && rest[1] == "diagnosis" && r.Method == http.MethodPost:
		var body struct {
			Disease    string  `json:"disease"`
			Confidence float64 `json:"confidence"`
			ImageURL   string  `json:"imageUrl"`
			Notes      string  `json:"notes"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		plant, err := s.service.AddPlantDiagnosis(r.Context(), userID, rest[0], body.Disease, body.Confidence, body.ImageURL, body.Notes)
		if err != nil {
			writeNotFoundAs(w, err, "Plant not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Diagnosis added successfully",
			"plant":   plant,
		})

	case len(rest) == 2 && rest[1] == "diagnosis" && r.Method == http.MethodGet:
		history, err := s.service.PlantDiagnosisHistory(r.Context(), userID, rest[0])
		if err != nil {
			writeNotFoundAs(w, err, "Plant not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "history": history, "total": len(history)})

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// ── diagnosis ──

func (s *HTTPServer) handleDiagnosis(w http.ResponseWriter, r *http.Request, rest []string) {
	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	userID := session.User.ID

	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		var input DiagnosisRecordInput
		if err := decodeBody(r, &input); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		record, err := s.service.SaveDiagnosisRecord(r.Context(), userID, input)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "diagnosis": record})

	case len(rest) == 1 && rest[0] == "upload" && r.Method == http.MethodPost:
		s.handleDiagnosisUpload(w, r)

	case len(rest) == 1 && rest[0] == "history" && r.Method == http.MethodGet:
		history, err := s.service.DiagnosisHistory(r.Context(), userID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "history": history})

	case len(rest) == 2 && rest[0] == "stats" && rest[1] == "overview" && r.Method == http.MethodGet:
		stats, err := s.service.DiagnosisOverview(r.Context(), userID)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})

	case len(rest) == 1 && r.Method == http.MethodGet:
		record, err := s.service.GetDiagnosisRecord(r.Context(), userID, rest[0])
		if err != nil {
			writeNotFoundAs(w, err, "Diagnosis not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "diagnosis": record})

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteDiagnosisRecord(r.Context(), userID, rest[0]); err != nil {
			writeNotFoundAs(w, err, "Diagnosis not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Diagnosis deleted successfully"})

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (s *HTTPServer) handleDiagnosisUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file provided")
		return
	}

	report, err := s.service.AnalyzeImage(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"diagnosis": report,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ── community ──

// communityCategories is the static category catalog served to clients.
var communityCategories = []map[string]string{
	{"id": "gardening-tips", "name": "Gardening Tips", "description": "General gardening advice"},
	{"id": "pest-control", "name": "Pest Control", "description": "Natural pest management"},
	{"id": "plant-diseases", "name": "Plant Diseases", "description": "Disease identification and treatment"},
	{"id": "urban-gardening", "name": "Urban Gardening", "description": "Small space gardening solutions"},
	{"id": "organic-gardening", "name": "Organic Gardening", "description": "Natural and organic methods"},
	{"id": "seasonal-care", "name": "Seasonal Care", "description": "Season-specific plant care"},
}

func (s *HTTPServer) handleCommunity(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 1 && rest[0] == "search" && r.Method == http.MethodGet:
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		filter, err := postFilterFromQuery(r, 10)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		result, err := s.service.SearchCommunity(r.Context(), query, filter)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"query":       result.Query,
			"results":     result.Results,
			"total":       result.Total,
			"suggestions": result.Suggestions,
		})

	case len(rest) == 1 && rest[0] == "posts" && r.Method == http.MethodGet:
		filter, err := postFilterFromQuery(r, 20)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		posts, err := s.service.ListCommunityPosts(r.Context(), filter)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "posts": posts, "total": len(posts)})

	case len(rest) == 1 && rest[0] == "posts" && r.Method == http.MethodPost:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			Title    string   `json:"title"`
			Content  string   `json:"content"`
			Tags     []string `json:"tags"`
			Category string   `json:"category"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		post, err := s.service.CreateCommunityPost(r.Context(), session.User, body.Title, body.Content, body.Tags, body.Category)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "post": post})

	case len(rest) == 2 && rest[0] == "posts" && rest[1] == "engagement" && r.Method == http.MethodGet:
		limit, err := queryInt(r, "limit", 10)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		posts, err := s.service.PostsByEngagement(r.Context(), limit)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "posts": posts, "total": len(posts)})

	case len(rest) == 2 && rest[0] == "posts" && r.Method == http.MethodGet:
		post, err := s.service.GetCommunityPost(r.Context(), rest[1])
		if err != nil {
			writeNotFoundAs(w, err, "Post not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "post": post})

	case len(rest) == 2 && rest[0] == "posts" && r.Method == http.MethodPut:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			Title    *string   `json:"title"`
			Content  *string   `json:"content"`
			Tags     *[]string `json:"tags"`
			Category *string   `json:"category"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		post, err := s.service.UpdateCommunityPost(r.Context(), session.User.ID, rest[1], store.PostFields{
			Title:    body.Title,
			Content:  body.Content,
			Tags:     body.Tags,
			Category: body.Category,
		})
		if err != nil {
			writeNotFoundAs(w, err, "Post not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "post": post})

	case len(rest) == 2 && rest[0] == "posts" && r.Method == http.MethodDelete:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		post, err := s.service.DeleteCommunityPost(r.Context(), session.User.ID, rest[1])
		if err != nil {
			writeNotFoundAs(w, err, "Post not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Post deleted successfully",
			"post":    post,
		})

	case len(rest) == 3 && rest[0] == "posts" && rest[2] == "like" && r.Method == http.MethodPost:
		if _, ok := s.requireSession(w, r); !ok {
			return
		}
		post, err := s.service.LikePost(r.Context(), rest[1])
		if err != nil {
			writeNotFoundAs(w, err, "Post not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Post liked successfully",
			"likes":   post.Likes,
		})

	case len(rest) == 3 && rest[0] == "posts" && rest[2] == "comment" && r.Method == http.MethodPost:
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var body struct {
			Content string `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		post, comment, err := s.service.AddComment(r.Context(), session.User, rest[1], body.Content)
		if err != nil {
			writeNotFoundAs(w, err, "Post not found")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"success":      true,
			"message":      "Comment added successfully",
			"comment":      comment,
			"commentCount": post.CommentCount,
		})

	case len(rest) == 1 && rest[0] == "insights" && r.Method == http.MethodGet:
		insights, err := s.service.CommunityInsights(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "insights": insights})

	case len(rest) == 1 && rest[0] == "trending" && r.Method == http.MethodGet:
		topics, err := s.service.TrendingTopics(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "trendingTopics": topics})

	case len(rest) == 2 && rest[0] == "trending" && rest[1] == "posts" && r.Method == http.MethodGet:
		limit, err := queryInt(r, "limit", 10)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		posts, err := s.service.TrendingPosts(r.Context(), limit)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "posts": posts, "total": len(posts)})

	case len(rest) == 1 && rest[0] == "categories" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "categories": communityCategories})

	case len(rest) == 1 && rest[0] == "suggestions" && r.Method == http.MethodGet:
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		suggestions, err := s.service.SearchSuggestions(r.Context(), query)
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "query": query, "suggestions": suggestions})

	case len(rest) == 1 && rest[0] == "stats" && r.Method == http.MethodGet:
		stats, err := s.service.CommunityStats(r.Context())
		if err != nil {
			writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// ── middleware and helpers ──

// requireSession enforces bearer auth: a missing token is 401, a token that
// fails verification is 403.
func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Access token required")
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusForbidden, "Invalid or expired token")
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func writeMappedError(w http.ResponseWriter, err error) {
	status, message := mapError(err)
	writeError(w, status, message)
}

// writeNotFoundAs writes ErrNotFound with an entity-specific message and
// delegates everything else to the standard mapping.
func writeNotFoundAs(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, message)
		return
	}
	writeMappedError(w, err)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func decodePlantInput(r *http.Request) (PlantInput, error) {
	var body struct {
		Name        *string `json:"name"`
		Species     *string `json:"species"`
		Location    *string `json:"location"`
		PlantedDate *string `json:"plantedDate"`
		Notes       *string `json:"notes"`
	}
	if err := decodeBody(r, &body); err != nil {
		return PlantInput{}, err
	}
	input := PlantInput{
		Name:     body.Name,
		Species:  body.Species,
		Location: body.Location,
		Notes:    body.Notes,
	}
	if body.PlantedDate != nil {
		parsed, err := time.Parse(time.RFC3339, *body.PlantedDate)
		if err != nil {
			parsed, err = time.Parse("2006-01-02", *body.PlantedDate)
		}
		if err != nil {
			return PlantInput{}, fmt.Errorf("invalid date format")
		}
		input.PlantedDate = &parsed
	}
	return input, nil
}

func postFilterFromQuery(r *http.Request, defaultLimit int) (store.PostFilter, error) {
	filter := store.PostFilter{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
		SortBy:   strings.TrimSpace(r.URL.Query().Get("sortBy")),
		Order:    strings.TrimSpace(r.URL.Query().Get("order")),
	}
	minLikes, err := queryInt(r, "minLikes", 0)
	if err != nil {
		return store.PostFilter{}, err
	}
	filter.MinLikes = minLikes

	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil {
		return store.PostFilter{}, err
	}
	filter.Limit = limit
	return filter, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return parsed, nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
