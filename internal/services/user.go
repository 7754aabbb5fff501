package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zuritech/duka-api/internal/audit"
	"github.com/zuritech/duka-api/internal/models"
	"github.com/zuritech/duka-api/internal/repository"
	"github.com/zuritech/duka-api/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for both unknown emails and wrong
// passwords so sign-in failures do not leak which one it was.
var ErrInvalidCredentials = fmt.Errorf("invalid email or password")

// UserService handles accounts and authentication. Roles come from the users
// table; there is no special-cased account.
type UserService struct {
	users  repository.UserRepository
	issuer *token.Issuer
	audit  *audit.Recorder
}

// NewUserService creates a new user service.
func NewUserService(users repository.UserRepository, issuer *token.Issuer, recorder *audit.Recorder) *UserService {
	return &UserService{users: users, issuer: issuer, audit: recorder}
}

// SignUp creates an account and returns a signed session token.
func (s *UserService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.SessionResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a valid email is required")
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters")
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, fmt.Errorf("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Role:         models.RoleUser,
		Town:         strings.TrimSpace(req.Town),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Upsert(ctx, &user); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	signed, err := s.issuer.Generate(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.audit.RecordActivity(user.ID, "sign_up", "users")
	log.Printf("[USER] Account created: %s", user.Email)
	return &models.SessionResponse{Token: signed, User: user}, nil
}

// SignIn authenticates by email and password.
func (s *UserService) SignIn(ctx context.Context, req models.SignInRequest) (*models.SessionResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	signed, err := s.issuer.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.audit.RecordActivity(user.ID, "sign_in", "users")
	log.Printf("[USER] Signed in: %s role=%s", user.Email, user.Role)
	return &models.SessionResponse{Token: signed, User: *user}, nil
}

// Get returns the account behind a user id.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}
