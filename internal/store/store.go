// Package store owns persistence for users, plants, community posts, and
// standalone diagnosis records. One Store interface, two backends: Postgres
// for deployments, an in-process MemoryStore for tests and local runs.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound covers both absent entities and entities not visible to
	// the requesting user; callers cannot distinguish the two.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the entity exists but the requester is not its author.
	ErrForbidden = errors.New("forbidden")
)

type Store interface {
	UserStore
	PlantStore
	PostStore
	DiagnosisStore
	SessionStore

	Ping(ctx context.Context) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user User) error
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByProviderID(ctx context.Context, provider, providerID string) (User, error)
	UpdateUser(ctx context.Context, user User) error
}

type PlantStore interface {
	CreatePlant(ctx context.Context, plant Plant) error
	GetPlant(ctx context.Context, id, userID string) (Plant, error)
	ListPlants(ctx context.Context, userID string) ([]Plant, error)
	UpdatePlant(ctx context.Context, id, userID string, fields PlantFields) (Plant, error)
	DeletePlant(ctx context.Context, id, userID string) (Plant, error)
	AppendDiagnosis(ctx context.Context, id, userID string, entry DiagnosisEntry) (Plant, error)
	SearchPlants(ctx context.Context, userID, query string) ([]Plant, error)
	PlantsByHealthStatus(ctx context.Context, userID, status string) ([]Plant, error)
	HealthSummary(ctx context.Context, userID string) (HealthSummary, error)
}

type PostStore interface {
	CreatePost(ctx context.Context, post CommunityPost) error
	GetPost(ctx context.Context, id string) (CommunityPost, error)
	ListPosts(ctx context.Context, filter PostFilter) ([]CommunityPost, error)
	UpdatePost(ctx context.Context, id, userID string, fields PostFields) (CommunityPost, error)
	DeletePost(ctx context.Context, id, userID string) (CommunityPost, error)
	LikePost(ctx context.Context, id string) (CommunityPost, error)
	AddComment(ctx context.Context, id string, comment Comment) (CommunityPost, error)
	SearchPosts(ctx context.Context, query string, filter PostFilter) ([]CommunityPost, error)
	TrendingPosts(ctx context.Context, limit int) ([]CommunityPost, error)
	PostsByEngagement(ctx context.Context, limit int) ([]CommunityPost, error)
	PostCategories(ctx context.Context) ([]CategoryCount, error)
	CountPosts(ctx context.Context) (int, error)
}

type DiagnosisStore interface {
	SaveDiagnosis(ctx context.Context, record DiagnosisRecord) error
	ListDiagnoses(ctx context.Context, userID string) ([]DiagnosisRecord, error)
	GetDiagnosis(ctx context.Context, id, userID string) (DiagnosisRecord, error)
	DeleteDiagnosis(ctx context.Context, id, userID string) error
	DiagnosisStats(ctx context.Context, userID string) (DiagnosisStats, error)
}

// SessionStore keeps hashed refresh tokens. The Redis implementation in
// internal/session is preferred; every Store also implements it so that
// deployments without Redis still get revocable refresh sessions.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}
