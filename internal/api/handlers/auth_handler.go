package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Wikid82/aegis/internal/api/middleware"
	"github.com/Wikid82/aegis/internal/logger"
	"github.com/Wikid82/aegis/internal/models"
	"github.com/Wikid82/aegis/internal/services"
)

// AuthHandler carries login, registration and profile endpoints. The login
// path is where failed attempts enter the audit trail and where the brute
// force rule is evaluated.
type AuthHandler struct {
	authService    *services.AuthService
	auditService   *services.AuditService
	anomalyService *services.AnomalyService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *services.AuthService, audit *services.AuditService, anomaly *services.AnomalyService) *AuthHandler {
	return &AuthHandler{authService: auth, auditService: audit, anomalyService: anomaly}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		h.recordFailedLogin(c, req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"name":       user.Name,
			"role":       user.Role,
			"department": user.Department,
		},
	})
}

// recordFailedLogin appends the FAILED_LOGIN event synchronously so the
// brute force rule sees the attempt that is being evaluated, then runs the
// rule. Neither step may fail the response.
func (h *AuthHandler) recordFailedLogin(c *gin.Context, email string) {
	sourceIP := c.ClientIP()
	event := &models.AuditEvent{
		ActorName:  "Anonymous",
		ActorRole:  models.RoleUnknown,
		Action:     models.ActionFailedLogin,
		Endpoint:   c.Request.Method + " " + c.Request.URL.Path,
		SourceIP:   sourceIP,
		Metadata:   services.Metadata(map[string]string{"email": email}),
	}
	if err := h.auditService.Record(event); err != nil {
		logger.WithError(err).Error("failed to persist failed login event")
		return
	}
	h.anomalyService.CheckBruteForce(sourceIP)
}

type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Name       string `json:"name" binding:"required"`
	Department string `json:"department"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authService.Register(req.Email, req.Password, req.Name, req.Department)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) Profile(c *gin.Context) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	user, err := h.authService.GetUserByID(id.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"role":       user.Role,
		"department": user.Department,
		"token_role": id.TokenRole,
	})
}
