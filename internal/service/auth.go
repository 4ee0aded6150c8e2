package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"job_board/internal/config"
	"job_board/internal/domain"
	"job_board/internal/repository"
	apperrors "job_board/pkg/errors"
	"job_board/pkg/jwt"
	"job_board/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, email, password, name, role string) (*AuthResponse, error)
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	ValidateToken(ctx context.Context, tokenString string) (*domain.User, error)
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type authService struct {
	userRepo repository.UserRepository
	audit    AuditService
	jwtCfg   config.JWTConfig
	log      logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, audit AuditService, jwtCfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		audit:    audit,
		jwtCfg:   jwtCfg,
		log:      log,
	}
}

func (s *authService) Register(ctx context.Context, email, password, name, role string) (*AuthResponse, error) {
	// Валидация входных данных
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	role = strings.ToUpper(strings.TrimSpace(role))

	if email == "" {
		return nil, apperrors.NewValidationError("email is required")
	}
	if !strings.Contains(email, "@") || len(email) > 255 {
		return nil, apperrors.NewValidationError("invalid email format")
	}
	if len(password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters")
	}
	if len(name) > 255 {
		return nil, apperrors.NewValidationError("name is too long (max 255 characters)")
	}
	if role == "" {
		role = domain.RoleSeeker
	}
	// ADMIN через регистрацию не выдается
	if role != domain.RoleSeeker && role != domain.RoleCompany {
		return nil, apperrors.NewValidationError("role must be SEEKER or COMPANY")
	}
	if role == domain.RoleCompany && name == "" {
		return nil, apperrors.NewValidationError("company name is required")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("Failed to hash password", "error", err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(passwordHash),
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// Для компании создается запись companies с именем пользователя
	var company *domain.Company
	if role == domain.RoleCompany {
		profile := "Company profile for " + name
		company = &domain.Company{
			ID:        uuid.New(),
			Name:      name,
			Profile:   &profile,
			CreatedAt: now,
		}
	}

	if err := s.userRepo.Create(ctx, user, company); err != nil {
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.audit.Record(ctx, user, nil, domain.AuditUserRegistered, map[string]interface{}{"email": email})

	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Не раскрываем, существует ли пользователь
			s.audit.Record(ctx, nil, nil, domain.AuditLoginFailed, map[string]interface{}{"email": email})
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.audit.Record(ctx, user, nil, domain.AuditLoginFailed, map[string]interface{}{"email": email})
		return nil, apperrors.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := jwt.ValidateToken(tokenString, s.jwtCfg.Secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	// Актуальные роль и компания берутся из токена: пользователи не меняют их после регистрации
	return &domain.User{
		ID:        claims.UserID,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      claims.Role,
		CompanyID: claims.CompanyID,
	}, nil
}

func (s *authService) issue(user *domain.User) (*AuthResponse, error) {
	token, err := jwt.GenerateAccessToken(jwt.TokenParams{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CompanyID: user.CompanyID,
		Name:      user.Name,
	}, s.jwtCfg.Secret, s.jwtCfg.Issuer, s.jwtCfg.TTL)
	if err != nil {
		s.log.Error("Failed to generate access token", "error", err)
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	user.PasswordHash = ""
	return &AuthResponse{Token: token, User: user}, nil
}
