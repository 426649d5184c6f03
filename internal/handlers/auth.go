package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nextolk/backend/internal/auth"
	"github.com/nextolk/backend/internal/dto"
	"github.com/nextolk/backend/internal/logger"
	"github.com/nextolk/backend/internal/util"
	"go.uber.org/zap"
)

// Register creates an account and its profile
// POST /api/register/
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.auth.Register(req)
	if err != nil {
		if errors.Is(err, auth.ErrUsernameExists) {
			util.RespondValidationError(c, "username", err.Error())
			return
		}
		util.RespondError(c, err, "Failed to create user")
		return
	}

	logger.Log.Info("User registered", logger.WithUserID(user.ID), zap.String("username", user.Username))
	c.JSON(http.StatusCreated, dto.ToRegisterResponse(user))
}

// Token issues an access/refresh pair for valid credentials
// POST /api/token/
func (h *Handlers) Token(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	pair, err := h.auth.Login(req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			util.RespondUnauthorized(c, err.Error())
			return
		}
		util.RespondError(c, err, "Failed to log in")
		return
	}
	c.JSON(http.StatusOK, pair)
}

// RefreshToken exchanges a refresh token for a new access token
// POST /api/token/refresh/
func (h *Handlers) RefreshToken(c *gin.Context) {
	var req dto.RefreshRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	access, err := h.auth.Refresh(req.Refresh)
	if err != nil {
		util.RespondUnauthorized(c, auth.ErrInvalidToken.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

// VerifyToken reports whether a token is valid
// POST /api/token/verify/
func (h *Handlers) VerifyToken(c *gin.Context) {
	var req dto.VerifyRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.auth.Verify(req.Token); err != nil {
		util.RespondUnauthorized(c, auth.ErrInvalidToken.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}
