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

type TemplateHandler struct{}

func NewTemplateHandler() *TemplateHandler {
	return &TemplateHandler{}
}

type TemplateRequest struct {
	Name      string   `json:"name"`
	Body      string   `json:"body"`
	Variables []string `json:"variables"`
}

func (r *TemplateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Body, validation.Required),
	)
}

func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tmpl := models.Template{
		ID:   uuid.NewString(),
		Name: req.Name,
		Body: req.Body,
	}
	tmpl.SetVariableList(req.Variables)

	if err := database.GormDB.Create(&tmpl).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}

	c.JSON(http.StatusCreated, tmpl)
}

func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	var templates []models.Template
	if err := database.GormDB.Order("created_at DESC").Find(&templates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if templates == nil {
		templates = []models.Template{}
	}

	c.JSON(http.StatusOK, templates)
}

type PreviewRequest struct {
	Variables map[string]string `json:"variables"`
	Row       map[string]string `json:"row"`
}

// PreviewTemplate renders the template body with the given variables, the
// same layered lookup the dispatch loop uses (row values win).
func (h *TemplateHandler) PreviewTemplate(c *gin.Context) {
	var tmpl models.Template
	err := database.GormDB.First(&tmpl, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vars := campaign.MergeVariables(req.Variables, req.Row)
	c.JSON(http.StatusOK, gin.H{"preview": campaign.Resolve(tmpl.Body, vars)})
}

func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	result := database.GormDB.Delete(&models.Template{}, "id = ?", c.Param("id"))
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Template deleted"})
}
