package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/library-fee-api/internal/models"
	appErrors "github.com/noah-isme/library-fee-api/pkg/errors"
)

type authStudentRepository interface {
	FindByPhone(ctx context.Context, phone string) (*models.Student, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	AdminID           string
	AdminName         string
	// AdminPasswordHash is a bcrypt hash. Admin login is disabled while it is empty.
	AdminPasswordHash string
}

// AuthService provides authentication use cases.
type AuthService struct {
	students  authStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(students authStudentRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	if config.AdminID == "" {
		config.AdminID = "admin1"
	}
	if config.AdminName == "" {
		config.AdminName = "Admin"
	}
	return &AuthService{students: students, validator: validate, logger: logger, config: config, now: time.Now}
}

// AdminLogin checks the console password and issues an admin token.
func (s *AuthService) AdminLogin(ctx context.Context, req models.AdminLoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid login payload")
	}
	if s.config.AdminPasswordHash == "" {
		return nil, appErrors.Clone(appErrors.ErrLoginDisabled, "admin login is not configured")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminPasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("admin login rejected", zap.String("ip", req.IP))
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid password")
	}

	info := models.UserInfo{ID: s.config.AdminID, Name: s.config.AdminName, Role: models.RoleAdmin}
	s.logger.Info("admin logged in", zap.String("ip", req.IP), zap.String("user_agent", req.UserAgent))
	return s.issue(info)
}

// StudentLogin signs a student in by registered phone number.
func (s *AuthService) StudentLogin(ctx context.Context, req models.StudentLoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid login payload")
	}

	student, err := s.students.FindByPhone(ctx, strings.TrimSpace(req.Phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "phone number is not registered")
		}
		return nil, appErrors.Internal(err, "failed to fetch student")
	}
	if !student.IsActive() || !student.CanLogin {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	info := models.UserInfo{ID: student.ID, Name: student.Name, Role: models.RoleStudent}
	s.logger.Info("student logged in", zap.String("student_id", student.ID), zap.String("ip", req.IP))
	return s.issue(info)
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.Role != models.RoleAdmin && claims.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown role")
	}

	return claims, nil
}

func (s *AuthService) issue(info models.UserInfo) (*models.LoginResponse, error) {
	issuedAt := s.now().UTC()
	token, err := s.generateAccessToken(info, issuedAt)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		User:        info,
		IssuedAt:    issuedAt,
	}, nil
}

func (s *AuthService) generateAccessToken(info models.UserInfo, issuedAt time.Time) (string, error) {
	claims := &models.JWTClaims{
		UserID: info.ID,
		Role:   info.Role,
		Name:   info.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   info.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.AccessTokenSecret))
}
