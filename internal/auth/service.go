package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KevinKickass/ioplusd/internal/config"
)

type Permission string

const (
	PermOperator   Permission = "operator"
	PermTechnician Permission = "technician"
	PermAdmin      Permission = "admin"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// userNamespace derives stable user ids from configured user names.
var userNamespace = uuid.MustParse("6f1c1a0e-3b7e-4d0a-9a57-2f8e0c4b9d11")

type account struct {
	id  uuid.UUID
	cfg config.UserConfig
}

// AuthService authenticates the users listed in the configuration.
type AuthService struct {
	users          map[string]account
	jwtHandler     *JWTHandler
	passwordHasher *PasswordHasher
	logger         *zap.Logger
}

func NewAuthService(cfg config.AuthConfig, logger *zap.Logger) *AuthService {
	users := make(map[string]account, len(cfg.Users))
	for _, u := range cfg.Users {
		users[u.Username] = account{
			id:  uuid.NewSHA1(userNamespace, []byte(u.Username)),
			cfg: u,
		}
	}

	if !cfg.IsProductionReady() {
		logger.Warn("JWT secret is not production ready, set the environment variable",
			zap.String("env", cfg.JWTSecretEnv))
	}

	return &AuthService{
		users:          users,
		jwtHandler:     NewJWTHandler(cfg.GetJWTSecret(), cfg.AccessTokenTTL),
		passwordHasher: NewPasswordHasher(),
		logger:         logger,
	}
}

// LoginUser authenticates a user and returns an access token
func (a *AuthService) LoginUser(username, password, ipAddress string) (string, time.Time, error) {
	acc, ok := a.users[username]
	if !ok {
		a.logger.Warn("Login failed", zap.String("username", username),
			zap.String("ip", ipAddress), zap.String("reason", "unknown user"))
		return "", time.Time{}, ErrInvalidCredentials
	}

	// Verify password
	valid, err := a.passwordHasher.VerifyPassword(password, acc.cfg.PasswordHash)
	if err != nil || !valid {
		a.logger.Warn("Login failed", zap.String("username", username),
			zap.String("ip", ipAddress), zap.String("reason", "invalid password"), zap.Error(err))
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expires, err := a.jwtHandler.GenerateAccessToken(acc.id, username, acc.cfg.Role)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	a.logger.Info("User logged in", zap.String("username", username), zap.String("role", acc.cfg.Role))
	return token, expires, nil
}

// ValidateToken validates an access token and returns its claims
func (a *AuthService) ValidateToken(token string) (*JWTClaims, error) {
	claims, err := a.jwtHandler.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	if _, ok := a.users[claims.Username]; !ok {
		return nil, fmt.Errorf("user %q no longer configured", claims.Username)
	}
	return claims, nil
}

// RoleToPermissions expands a role into the permissions it includes.
func RoleToPermissions(role string) []Permission {
	switch role {
	case "admin":
		return []Permission{PermOperator, PermTechnician, PermAdmin}
	case "technician":
		return []Permission{PermOperator, PermTechnician}
	default:
		return []Permission{PermOperator}
	}
}
