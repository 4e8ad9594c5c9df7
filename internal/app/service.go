// Package app wires the domain services behind the HTTP surface: sessions,
// plant care, disease diagnosis, and the community feed.
package app

import (
	"context"
	"time"

	"plantai/api/internal/accounts"
	"plantai/api/internal/auth"
	"plantai/api/internal/augment"
	"plantai/api/internal/classify"
	"plantai/api/internal/config"
	"plantai/api/internal/storage"
	"plantai/api/internal/store"
	"plantai/api/internal/util"
)

// Session is an authenticated caller: the verified user plus the tokens
// issued to them.
type Session struct {
	Token        string
	RefreshToken string
	User         store.User
	JTI          string
	ExpiresAt    time.Time
}

type Service struct {
	cfg        config.Config
	store      store.Store
	sessions   store.SessionStore
	accounts   *accounts.Service
	classifier classify.Classifier
	augmenter  augment.Augmenter
	images     storage.ImageStore
}

// New assembles the service. augmenter may be nil (no API key configured);
// every augmenter consultation then degrades to its fallback.
func New(cfg config.Config, st store.Store, sessions store.SessionStore, accountsSvc *accounts.Service,
	classifier classify.Classifier, augmenter augment.Augmenter, images storage.ImageStore) *Service {
	if sessions == nil {
		sessions = st
	}
	return &Service{
		cfg:        cfg,
		store:      st,
		sessions:   sessions,
		accounts:   accountsSvc,
		classifier: classifier,
		augmenter:  augmenter,
		images:     images,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Register(ctx context.Context, username, email, password string) (store.User, error) {
	return s.accounts.Register(ctx, accounts.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// LoginFederated exchanges a resolved OAuth profile for a session. The
// OAuth HTTP dance itself lives outside this service.
func (s *Service) LoginFederated(ctx context.Context, profile accounts.FederatedProfile) (Session, error) {
	user, err := s.accounts.UpsertFederated(ctx, profile)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:      user.ID,
		Name:     user.Username,
		Email:    user.Email,
		Provider: user.Provider,
		JTI:      jti,
		Exp:      expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		User:         user,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		User:      user,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// Logout revokes the caller's refresh session. Access tokens stay valid
// until expiry; clients drop them.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
}

func (s *Service) Profile(ctx context.Context, userID string) (store.User, error) {
	return s.accounts.GetUser(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, update accounts.ProfileUpdate) (store.User, error) {
	return s.accounts.UpdateProfile(ctx, userID, update)
}
