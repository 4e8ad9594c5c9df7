package store

import (
	"strings"
	"time"
)

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Provider     string     `json:"provider"`
	GoogleID     string     `json:"googleId,omitempty"`
	FacebookID   string     `json:"facebookId,omitempty"`
	Avatar       string     `json:"avatar,omitempty"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

const (
	HealthUnknown    = "Unknown"
	HealthHealthy    = "Healthy"
	HealthDiseased   = "Diseased"
	HealthSuspicious = "Suspicious"
)

// DeriveHealthStatus classifies a plant from its latest diagnosis. The
// substring match and single threshold are the documented contract, warts
// included: a disease named "unhealthy_spot" lands in the Healthy branch.
func DeriveHealthStatus(disease string, confidence float64) string {
	if strings.Contains(disease, "healthy") {
		return HealthHealthy
	}
	if confidence > 0.7 {
		return HealthDiseased
	}
	return HealthSuspicious
}

type DiagnosisEntry struct {
	ID         string    `json:"id"`
	Disease    string    `json:"disease"`
	Confidence float64   `json:"confidence"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Plant struct {
	ID               string           `json:"id"`
	UserID           string           `json:"userId"`
	Name             string           `json:"name"`
	Species          string           `json:"species"`
	Location         string           `json:"location"`
	PlantedDate      time.Time        `json:"plantedDate"`
	Notes            string           `json:"notes"`
	HealthStatus     string           `json:"healthStatus"`
	LastDiagnosis    *DiagnosisEntry  `json:"lastDiagnosis,omitempty"`
	DiagnosisHistory []DiagnosisEntry `json:"diagnosisHistory"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// PlantFields carries the mutable plant attributes for create and update.
// Nil pointers mean "not provided".
type PlantFields struct {
	Name        *string
	Species     *string
	Location    *string
	PlantedDate *time.Time
	Notes       *string
}

type HealthSummary struct {
	Total                  int            `json:"total"`
	ByStatus               map[string]int `json:"byStatus"`
	PlantsNeedingAttention int            `json:"plantsNeedingAttention"`
}

type Comment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type CommunityPost struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Tags         []string  `json:"tags"`
	Category     string    `json:"category"`
	Likes        int       `json:"likes"`
	Comments     []Comment `json:"comments"`
	CommentCount int       `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// EngagementScore ranks posts for the engagement feed.
func (p CommunityPost) EngagementScore() int {
	return p.Likes + p.CommentCount
}

// PostFilter narrows and orders post listings. MinLikes is an inclusive
// lower bound; Limit truncates after sorting; zero Limit means no cap.
type PostFilter struct {
	Category string
	MinLikes int
	SortBy   string // createdAt | likes | commentCount
	Order    string // asc | desc
	Limit    int
}

type PostFields struct {
	Title    *string
	Content  *string
	Tags     *[]string
	Category *string
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// DiagnosisRecord is a standalone classification result saved from the
// upload flow, independent of any plant.
type DiagnosisRecord struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	ImageURL        string           `json:"imageUrl,omitempty"`
	Disease         string           `json:"disease"`
	Confidence      float64          `json:"confidence"`
	Recommendations []string         `json:"recommendations,omitempty"`
	Predictions     []PredictionPair `json:"predictions,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

type PredictionPair struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
}

type DiagnosisStats struct {
	TotalDiagnoses    int     `json:"totalDiagnoses"`
	HealthyCount      int     `json:"healthyCount"`
	DiseasedCount     int     `json:"diseasedCount"`
	MostCommonDisease string  `json:"mostCommonDisease,omitempty"`
	AverageConfidence float64 `json:"averageConfidence"`
}
