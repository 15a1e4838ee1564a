package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/KevinKickass/ioplusd/internal/auth"
	"github.com/KevinKickass/ioplusd/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Login request/response types
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// POST /api/v1/auth/login
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeAuthInvalid, "Invalid request body", err.Error()))
		return
	}

	token, expires, err := s.authService.LoginUser(req.Username, req.Password, c.ClientIP())
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Error("Login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeAuthFailure, "Login failed", nil))
			return
		}
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse(types.CodeAuthUnauthorized, "Invalid credentials", nil))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(expires).Seconds()),
	})
}

// GET /api/v1/auth/me
func (s *Server) getCurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"username":    auth.GetUsername(c),
		"permissions": auth.GetUserPermissions(c),
	})
}
