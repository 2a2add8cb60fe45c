package api

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"whatsapp-console/internal/campaign"
	"whatsapp-console/internal/database"
	"whatsapp-console/internal/models"
)

type SessionHandler struct {
	Registry *campaign.SessionRegistry
}

func NewSessionHandler(registry *campaign.SessionRegistry) *SessionHandler {
	return &SessionHandler{Registry: registry}
}

type CreateSessionRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (r *CreateSessionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Phone, validation.Required),
	)
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := models.Session{
		ID:     uuid.NewString(),
		Name:   req.Name,
		Phone:  req.Phone,
		Status: models.SessionStatusConnecting,
	}
	if err := database.GormDB.Create(&sess).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, sess)
}

func (h *SessionHandler) ListSessions(c *gin.Context) {
	var sessions []models.Session
	if err := database.GormDB.Order("created_at ASC").Find(&sessions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if sessions == nil {
		sessions = []models.Session{}
	}

	c.JSON(http.StatusOK, sessions)
}

type UpdateSessionStatusRequest struct {
	Status string `json:"status"`
}

func (r *UpdateSessionStatusRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status, validation.Required, validation.In(
			models.SessionStatusReady,
			models.SessionStatusConnecting,
			models.SessionStatusDisconnected)),
	)
}

// UpdateSessionStatus changes a session's liveness. The engine's registry is
// invalidated so running campaigns see the change on their next target.
func (h *SessionHandler) UpdateSessionStatus(c *gin.Context) {
	id := c.Param("id")

	var req UpdateSessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var sess models.Session
	err := database.GormDB.First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	sess.Status = req.Status
	if err := database.GormDB.Save(&sess).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session"})
		return
	}
	h.Registry.Invalidate(id)

	c.JSON(http.StatusOK, sess)
}

func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")

	result := database.GormDB.Delete(&models.Session{}, "id = ?", id)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	h.Registry.Invalidate(id)

	c.JSON(http.StatusOK, gin.H{"status": "Session deleted"})
}
