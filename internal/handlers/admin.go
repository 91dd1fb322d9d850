// internal/handlers/admin.go

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ArowuTest/srandom/internal/auth"
	"github.com/ArowuTest/srandom/internal/models"
)

// loginRequest defines JSON payload for login.
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates the configured admin and returns a JWT.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid login payload: " + err.Error()})
		return
	}

	err := auth.CheckPassword(h.opts.AdminUsername, h.opts.AdminPasswordHash, req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin login is not configured"})
		return
	case err != nil:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := h.issuer.GenerateJWT(req.Username, string(models.RoleAdmin))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"username": req.Username,
		"role":     models.RoleAdmin,
	})
}

// Reseed handles POST /api/v1/admin/reseed
func (h *Handler) Reseed(c *gin.Context) {
	if err := h.dev.Reseed(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	h.log.Info().Str("admin", c.GetString("admin_user")).Msg("reseed requested")
	c.JSON(http.StatusOK, h.dev.Status())
}

// ListSnapshots handles GET /api/v1/admin/snapshots?limit=N
func (h *Handler) ListSnapshots(c *gin.Context) {
	snaps, err := h.rec.ListSnapshots(c.Request.Context(), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch snapshots: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
}

// ListSessions handles GET /api/v1/admin/sessions?limit=N
func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.rec.ListSessions(c.Request.Context(), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sessions: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil {
		return 100
	}
	return limit
}
