package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"ranchops/internal/domain"
	"ranchops/internal/metrics"
	"ranchops/internal/util"
	apperrors "ranchops/pkg/errors"
)

// AuthService implements login and user management
type AuthService struct {
	db *gorm.DB
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// LoginPayload carries login credentials
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult carries an issued access token
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// CreateUserPayload carries fields for creating a staff user
type CreateUserPayload struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
	IsActive bool    `json:"is_active"`
	IsAdmin  bool    `json:"is_admin"`
	Roles    string  `json:"roles"`
}

// UserResult is the external representation of a user
type UserResult struct {
	ID        int      `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	FullName  *string  `json:"full_name,omitempty"`
	IsActive  bool     `json:"is_active"`
	IsAdmin   bool     `json:"is_admin"`
	Roles     []string `json:"roles"`
	CreatedAt string   `json:"created_at"`
	LastLogin *string  `json:"last_login,omitempty"`
}

// Login implements the login method
func (s *AuthService) Login(ctx context.Context, p *LoginPayload) (*LoginResult, error) {
	username := strings.TrimSpace(p.Username)
	password := strings.TrimSpace(p.Password)

	log.Printf("[AUTH] Login attempt for user: %s", username)

	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[AUTH] Login failed: user '%s' not found", username)
			metrics.RecordAuthAttempt(false)
			return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "incorrect username or password")
		}
		log.Printf("[AUTH] Login failed: database error for user '%s': %v", username, err)
		metrics.RecordAuthAttempt(false)
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to authenticate", err)
	}

	if !util.CheckPasswordHash(password, user.HashedPassword) {
		log.Printf("[AUTH] Login failed: invalid password for user '%s'", username)
		metrics.RecordAuthAttempt(false)
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "incorrect username or password")
	}

	if !user.IsActive {
		log.Printf("[AUTH] Login failed: user '%s' is inactive", username)
		metrics.RecordAuthAttempt(false)
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "user account is inactive")
	}

	// Update last login
	now := time.Now()
	user.LastLogin = &now
	s.db.WithContext(ctx).Save(&user)

	token, err := util.GenerateToken(&user)
	if err != nil {
		log.Printf("[AUTH] Login failed: token generation error for user '%s': %v", username, err)
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to generate token", err)
	}

	log.Printf("[AUTH] Login successful for user '%s' (id=%d, admin=%v, roles=%s)", username, user.ID, user.IsAdmin, user.Roles)
	metrics.RecordAuthAttempt(true)

	return &LoginResult{
		AccessToken: token,
		TokenType:   "bearer",
	}, nil
}

// CreateUser implements the create user method
func (s *AuthService) CreateUser(ctx context.Context, p *CreateUserPayload) (*UserResult, error) {
	username := strings.TrimSpace(p.Username)
	email := strings.ToLower(strings.TrimSpace(p.Email))
	password := strings.TrimSpace(p.Password)

	log.Printf("[AUTH] CreateUser request: username=%s, email=%s", username, email)

	if username == "" || email == "" || password == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "username, email and password are required")
	}

	var existingUser domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&existingUser).Error; err == nil {
		log.Printf("[AUTH] CreateUser failed: username '%s' already exists", username)
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "username already registered")
	}
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existingUser).Error; err == nil {
		log.Printf("[AUTH] CreateUser failed: email '%s' already exists", email)
		return nil, apperrors.New(apperrors.ErrCodeBadRequest, "email already registered")
	}

	hashedPassword, err := util.HashPassword(password)
	if err != nil {
		log.Printf("[AUTH] CreateUser failed: password hashing error: %v", err)
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to hash password", err)
	}

	user := domain.User{
		Username:       username,
		Email:          email,
		HashedPassword: hashedPassword,
		IsActive:       p.IsActive,
		IsAdmin:        p.IsAdmin,
		Roles:          normalizeRoles(p.Roles),
	}
	if p.FullName != nil {
		fullName := strings.TrimSpace(*p.FullName)
		user.FullName = &fullName
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		log.Printf("[AUTH] CreateUser failed: database error: %v", err)
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to create user", err)
	}

	log.Printf("[AUTH] CreateUser successful: username=%s, id=%d", username, user.ID)
	return convertUserToResult(&user), nil
}

// Me returns the external representation of the current user
func (s *AuthService) Me(ctx context.Context, user *domain.User) *UserResult {
	log.Printf("[AUTH] Me request for user: %s (id=%d)", user.Username, user.ID)
	return convertUserToResult(user)
}

// normalizeRoles trims and lowercases a comma-separated role list
func normalizeRoles(roles string) string {
	var cleaned []string
	for _, part := range strings.Split(roles, ",") {
		if name := strings.ToLower(strings.TrimSpace(part)); name != "" {
			cleaned = append(cleaned, name)
		}
	}
	return strings.Join(cleaned, ",")
}

func convertUserToResult(user *domain.User) *UserResult {
	result := &UserResult{
		ID:        int(user.ID),
		Username:  user.Username,
		Email:     user.Email,
		IsActive:  user.IsActive,
		IsAdmin:   user.IsAdmin,
		Roles:     user.RoleNames(),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}

	if user.FullName != nil {
		result.FullName = user.FullName
	}
	if user.LastLogin != nil {
		lastLogin := user.LastLogin.Format(time.RFC3339)
		result.LastLogin = &lastLogin
	}

	return result
}
