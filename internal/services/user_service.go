package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log"
	"strconv"
	"strings"

	"fixtrack/internal/auth"
	"fixtrack/internal/metrics"
	"fixtrack/internal/models"
	"fixtrack/internal/repositories"
)

var (
	ErrInvalidCredentials      = errors.New("invalid username or password")
	ErrInvalidRegistrationCode = errors.New("invalid registration code")
	ErrRegistrationClosed      = errors.New("registration is closed, ask the shop owner for a referral code")
	ErrShopHasAdmin            = errors.New("this shop already has an admin, register with the staff referral code")
	ErrUsernameTaken           = errors.New("username already exists")
	ErrWeakPassword            = errors.New("password must be at least 6 characters")
	ErrMissingFields           = errors.New("username and password are required")
	ErrCannotDeleteSelf        = errors.New("you cannot delete your own account")
	ErrUserNotFound            = errors.New("user not found")
)

type UserService struct {
	Repo       UserStore
	Settings   SettingsStore
	JWTManager *auth.JWTManager
}

func NewUserService(repo UserStore, settings SettingsStore, jwtManager *auth.JWTManager) *UserService {
	return &UserService{
		Repo:       repo,
		Settings:   settings,
		JWTManager: jwtManager,
	}
}

// Login authenticates a user and returns a session payload
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	username := strings.TrimSpace(req.Identifier)
	if username == "" || req.Secret == "" {
		return nil, ErrMissingFields
	}

	user, err := s.Repo.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		metrics.LoginsTotal.WithLabelValues("login", "rejected").Inc()
		return nil, ErrInvalidCredentials
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Secret) {
		metrics.LoginsTotal.WithLabelValues("login", "rejected").Inc()
		return nil, ErrInvalidCredentials
	}

	metrics.LoginsTotal.WithLabelValues("login", "ok").Inc()
	return s.authResponse(user)
}

// Register creates an account. A FirstAdmin request claims an empty shop
// as its Admin; everyone else needs the current staff referral code.
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	username := strings.TrimSpace(req.Identifier)
	if username == "" || req.Secret == "" {
		return nil, ErrMissingFields
	}
	if len(req.Secret) < auth.MinPasswordLength {
		return nil, ErrWeakPassword
	}

	role := models.RoleAdmin
	if !req.FirstAdmin {
		settings, err := s.Settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		if settings.StaffReferralCode == "" {
			metrics.LoginsTotal.WithLabelValues("register", "rejected").Inc()
			return nil, ErrRegistrationClosed
		}
		code := strings.TrimSpace(req.RegistrationCode)
		if subtle.ConstantTimeCompare([]byte(code), []byte(settings.StaffReferralCode)) != 1 {
			metrics.LoginsTotal.WithLabelValues("register", "rejected").Inc()
			return nil, ErrInvalidRegistrationCode
		}
		role = models.RoleStaff
	}

	hashedPassword, err := auth.HashPassword(req.Secret)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         username,
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         role,
	}
	create := s.Repo.Create
	if req.FirstAdmin {
		create = s.Repo.CreateFirst
	}
	if err := create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotEmpty):
			metrics.LoginsTotal.WithLabelValues("register", "rejected").Inc()
			return nil, ErrShopHasAdmin
		case errors.Is(err, repositories.ErrDuplicate):
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	log.Printf("[Auth] Registered %s as %s", user.Username, user.Role)
	metrics.LoginsTotal.WithLabelValues("register", "ok").Inc()
	return s.authResponse(user)
}

func (s *UserService) authResponse(user *models.User) (*models.AuthResponse, error) {
	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{
		Token:       token,
		PrincipalID: strconv.Itoa(user.ID),
		DisplayName: user.Name,
		Role:        user.Role,
	}, nil
}

// ListUsers returns all users
func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.Repo.List(ctx)
}

// CreateStaff adds a Staff account on behalf of an admin
func (s *UserService) CreateStaff(ctx context.Context, req *models.CreateStaffRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, ErrMissingFields
	}
	if len(req.Password) < auth.MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = username
	}
	user := &models.User{
		Name:         name,
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         models.RoleStaff,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account. Admins cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, actorID, id int) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
