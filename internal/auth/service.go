package auth

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"schoolattend/internal/apperr"
	"schoolattend/internal/user"
)

// LoginResult carries the issued token plus the role-based redirect hint
// the dashboard pages expect.
type LoginResult struct {
	Token       string
	Role        string
	RedirectURL string
	ExpiresAt   time.Time
}

// Service validates credentials and issues session tokens.
type Service struct {
	users      *user.Repository
	signingKey string
	issuer     string
	tokenTTL   time.Duration
}

// NewService creates an auth service backed by the user repository.
func NewService(users *user.Repository, signingKey, issuer string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &Service{users: users, signingKey: signingKey, issuer: issuer, tokenTTL: tokenTTL}
}

// Login checks the username/password pair and returns a signed session
// token. Unknown users and wrong passwords are indistinguishable to the
// caller.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	if username == "" || password == "" {
		return LoginResult{}, apperr.Validationf("username and password are required")
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return LoginResult{}, apperr.Storage(err)
	}
	if u == nil {
		return LoginResult{}, apperr.Authf("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, apperr.Authf("Invalid credentials")
	}

	token, expiresAt, err := Issue(u.ID, u.Role, s.issuer, s.signingKey, s.tokenTTL)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		Token:       token,
		Role:        u.Role,
		RedirectURL: redirectFor(u.Role),
		ExpiresAt:   expiresAt,
	}, nil
}

// Me returns the user record behind a verified token.
func (s *Service) Me(ctx context.Context, userID string) (*user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if u == nil {
		return nil, apperr.NotFoundf("User not found")
	}
	return u, nil
}

// ForgotPassword looks up the account; actual reset delivery is out of
// band, so success only confirms the account exists.
func (s *Service) ForgotPassword(ctx context.Context, email, role string) error {
	u, err := s.users.GetByEmailAndRole(ctx, email, role)
	if err != nil {
		return apperr.Storage(err)
	}
	if u == nil {
		return apperr.NotFoundf("User not found")
	}
	return nil
}

func redirectFor(role string) string {
	if role == user.RoleStaff {
		return "/staff/dashboard.html"
	}
	return "/student/dashboard.html"
}

// HashPassword produces a bcrypt hash for provisioning flows.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
