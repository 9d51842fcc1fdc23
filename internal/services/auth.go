package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/hmaged/signfleet/internal/models"
	"github.com/hmaged/signfleet/internal/repositories"
	"github.com/hmaged/signfleet/internal/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidAPIKey      = errors.New("api key not valid")
)

type AuthService struct {
	admins    repositories.AdminRepository
	devices   repositories.DeviceRepository
	jwtSecret string
	jwtExpiry time.Duration
	log       *zap.Logger
}

func NewAuthService(
	admins repositories.AdminRepository,
	devices repositories.DeviceRepository,
	jwtSecret string,
	jwtExpiry time.Duration,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		admins:    admins,
		devices:   devices,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
		log:       log,
	}
}

// Login verifies admin credentials and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*models.Admin, string, error) {
	admin, err := s.admins.GetByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get admin: %w", err)
	}

	if !utils.CheckPassword(admin.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.generateToken(admin.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return admin, token, nil
}

func (s *AuthService) generateToken(adminID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(adminID, 10),
		"exp": now.Add(s.jwtExpiry).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// VerifyToken validates a session token and returns the admin ID it carries.
func (s *AuthService) VerifyToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	subject, ok := claims["sub"].(string)
	if !ok {
		return 0, ErrInvalidToken
	}
	adminID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}

	return adminID, nil
}

// AdminFromToken resolves a session token to its admin record.
func (s *AuthService) AdminFromToken(ctx context.Context, tokenString string) (*models.Admin, error) {
	adminID, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}

	admin, err := s.admins.GetByID(ctx, adminID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return admin, nil
}

// DeviceFromAPIKey resolves an X-API-Key header value to its device record.
func (s *AuthService) DeviceFromAPIKey(ctx context.Context, apiKey string) (*models.Device, error) {
	device, err := s.devices.GetByAPIKey(ctx, apiKey)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrInvalidAPIKey
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}
	return device, nil
}

// EnsureRootAdmin creates the bootstrap "root" admin if no such account
// exists yet. Skipped when no password is configured.
func (s *AuthService) EnsureRootAdmin(ctx context.Context, password string) error {
	if password == "" {
		return nil
	}

	_, err := s.admins.GetByUsername(ctx, "root")
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to check root admin: %w", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash root password: %w", err)
	}

	admin := &models.Admin{Username: "root", PasswordHash: hash}
	if err := s.admins.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create root admin: %w", err)
	}

	s.log.Info("created bootstrap root admin")
	return nil
}
