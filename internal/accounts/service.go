// Package accounts provides local credential accounts and the federated
// identity contract used by OAuth callbacks.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"plantai/api/internal/store"
	"plantai/api/internal/util"
)

var (
	// ErrDuplicateIdentity means the username or email is already taken.
	ErrDuplicateIdentity = errors.New("username or email already registered")
	// ErrInvalidCredential covers both unknown email and wrong password.
	ErrInvalidCredential = errors.New("invalid email or password")
	// ErrValidation wraps input validation failures.
	ErrValidation = errors.New("invalid input")
)

// Service manages user accounts over a UserStore.
type Service struct {
	store store.UserStore
}

func NewService(userStore store.UserStore) *Service {
	return &Service{store: userStore}
}

// RegisterRequest contains local sign-up parameters.
type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

// Register creates a local credential account. Password hashes are bcrypt;
// the plaintext is never stored.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if len(req.Username) < 3 {
		return store.User{}, fmt.Errorf("%w: username must be at least 3 characters", ErrValidation)
	}
	if !validEmail(req.Email) {
		return store.User{}, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if len(req.Password) < 6 {
		return store.User{}, fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}

	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return store.User{}, ErrDuplicateIdentity
	}
	if _, err := s.store.GetUserByUsername(ctx, req.Username); err == nil {
		return store.User{}, ErrDuplicateIdentity
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := store.User{
		ID:           util.NewID("user"),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Provider:     "local",
		Role:         "user",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Authenticate checks a local credential pair. Unknown email and wrong
// password return the same error so callers cannot probe for accounts.
func (s *Service) Authenticate(ctx context.Context, email, password string) (store.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return store.User{}, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return store.User{}, ErrInvalidCredential
	}
	if user.PasswordHash == "" {
		// Federated account without a local password.
		return store.User{}, ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredential
	}
	return user, nil
}

// GetUser looks up an account by ID.
func (s *Service) GetUser(ctx context.Context, id string) (store.User, error) {
	return s.store.GetUserByID(ctx, id)
}

// FindFederated looks up an account by OAuth provider identity.
func (s *Service) FindFederated(ctx context.Context, provider, providerID string) (store.User, error) {
	return s.store.GetUserByProviderID(ctx, provider, providerID)
}

// FederatedProfile is the identity payload an OAuth callback hands over.
type FederatedProfile struct {
	Provider   string // google | facebook
	ProviderID string
	Email      string
	Name       string
	Avatar     string
}

// UpsertFederated resolves an OAuth profile to an account: match on the
// provider ID first, then link by email, then create a new account.
func (s *Service) UpsertFederated(ctx context.Context, profile FederatedProfile) (store.User, error) {
	if profile.Provider != "google" && profile.Provider != "facebook" {
		return store.User{}, fmt.Errorf("%w: unsupported provider %q", ErrValidation, profile.Provider)
	}
	if profile.ProviderID == "" {
		return store.User{}, fmt.Errorf("%w: provider id is required", ErrValidation)
	}
	profile.Email = strings.TrimSpace(strings.ToLower(profile.Email))

	if user, err := s.store.GetUserByProviderID(ctx, profile.Provider, profile.ProviderID); err == nil {
		return user, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.User{}, err
	}

	if profile.Email != "" {
		user, err := s.store.GetUserByEmail(ctx, profile.Email)
		switch {
		case err == nil:
			setProviderID(&user, profile.Provider, profile.ProviderID)
			if user.Avatar == "" {
				user.Avatar = profile.Avatar
			}
			user.UpdatedAt = time.Now().UTC()
			if err := s.store.UpdateUser(ctx, user); err != nil {
				return store.User{}, fmt.Errorf("link federated identity: %w", err)
			}
			return user, nil
		case !errors.Is(err, store.ErrNotFound):
			return store.User{}, err
		}
	}

	now := time.Now().UTC()
	user := store.User{
		ID:        util.NewID("user"),
		Username:  s.uniqueUsername(ctx, profile.Name, profile.ProviderID),
		Email:     profile.Email,
		Provider:  profile.Provider,
		Avatar:    profile.Avatar,
		Role:      "user",
		CreatedAt: now,
		UpdatedAt: now,
	}
	setProviderID(&user, profile.Provider, profile.ProviderID)
	if err := s.store.CreateUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("create federated user: %w", err)
	}
	return user, nil
}

// ProfileUpdate carries the mutable profile attributes. Nil means unchanged.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Avatar   *string
}

// UpdateProfile applies a partial profile update, re-checking uniqueness for
// any changed username or email.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (store.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return store.User{}, err
	}

	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if len(username) < 3 {
			return store.User{}, fmt.Errorf("%w: username must be at least 3 characters", ErrValidation)
		}
		if username != user.Username {
			if existing, err := s.store.GetUserByUsername(ctx, username); err == nil && existing.ID != userID {
				return store.User{}, ErrDuplicateIdentity
			}
			user.Username = username
		}
	}
	if update.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*update.Email))
		if !validEmail(email) {
			return store.User{}, fmt.Errorf("%w: a valid email is required", ErrValidation)
		}
		if email != user.Email {
			if existing, err := s.store.GetUserByEmail(ctx, email); err == nil && existing.ID != userID {
				return store.User{}, ErrDuplicateIdentity
			}
			user.Email = email
		}
	}
	if update.Avatar != nil {
		user.Avatar = *update.Avatar
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// uniqueUsername derives a username from an OAuth display name, suffixing
// with part of the provider ID if the plain form is taken.
func (s *Service) uniqueUsername(ctx context.Context, name, providerID string) string {
	base := strings.ReplaceAll(strings.TrimSpace(name), " ", "")
	if len(base) < 3 {
		base = "plantfan"
	}
	if _, err := s.store.GetUserByUsername(ctx, base); err != nil {
		return base
	}
	suffix := providerID
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return base + "_" + suffix
}

func setProviderID(user *store.User, provider, providerID string) {
	switch provider {
	case "google":
		user.GoogleID = providerID
	case "facebook":
		user.FacebookID = providerID
	}
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	if at < 1 {
		return false
	}
	domain := email[at+1:]
	return strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
}
