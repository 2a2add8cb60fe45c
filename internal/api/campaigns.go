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

type CampaignHandler struct {
	Engine *campaign.Engine
}

func NewCampaignHandler(engine *campaign.Engine) *CampaignHandler {
	return &CampaignHandler{Engine: engine}
}

type CampaignRequest struct {
	Name             string                  `json:"name"`
	SendMode         string                  `json:"send_mode"`
	RotationStrategy string                  `json:"rotation_strategy"`
	TemplateIDs      []string                `json:"template_ids"`
	SessionIDs       []string                `json:"session_ids"`
	Targets          string                  `json:"targets"` // raw input: numbers separated by newlines/commas
	Variables        map[string]string       `json:"variables"`
	Rows             []map[string]string     `json:"rows"`
	Policy           models.AntiBlockPolicy  `json:"policy"`
}

func (r *CampaignRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.SendMode, validation.In("", models.SendModeSequence, models.SendModeRandom)),
		validation.Field(&r.RotationStrategy, validation.In("",
			models.RotationRoundRobin, models.RotationRandom,
			models.RotationLeastUsed, models.RotationPerformanceBased)),
	)
}

// apply fills a campaign from the request: defaults, derived targets and
// JSON columns.
func (r *CampaignRequest) apply(c *models.Campaign) {
	c.Name = r.Name
	c.SendMode = r.SendMode
	if c.SendMode == "" {
		c.SendMode = models.SendModeSequence
	}
	c.RotationStrategy = r.RotationStrategy
	if c.RotationStrategy == "" {
		c.RotationStrategy = models.RotationRoundRobin
	}
	c.SetTemplateIDs(r.TemplateIDs)
	c.SetSessionIDs(r.SessionIDs)
	c.SetVariableMap(r.Variables)
	c.Policy = r.Policy

	if len(r.Rows) > 0 {
		// Row-based personalization: targets come from the phone column,
		// one per row, order preserving.
		targets, rows := campaign.TargetsFromRows(r.Rows)
		c.SetTargets(targets)
		c.SetRowList(rows)
	} else {
		c.SetTargets(campaign.ParseTargets(r.Targets))
		c.SetRowList(nil)
	}
}

func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := campaign.ValidatePolicy(req.Policy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cam := models.Campaign{
		ID:     uuid.NewString(),
		Status: models.CampaignStatusDraft,
	}
	req.apply(&cam)

	if err := database.GormDB.Create(&cam).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create campaign"})
		return
	}

	c.JSON(http.StatusCreated, cam)
}

func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	var campaigns []models.Campaign
	if err := database.GormDB.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Return empty array instead of null
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}

	c.JSON(http.StatusOK, campaigns)
}

func (h *CampaignHandler) GetCampaign(c *gin.Context) {
	var cam models.Campaign
	err := database.GormDB.First(&cam, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cam)
}

// UpdateCampaign edits a draft campaign. Running, paused and finished
// campaigns are immutable through this endpoint.
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	var cam models.Campaign
	err := database.GormDB.First(&cam, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cam.Status != models.CampaignStatusDraft {
		c.JSON(http.StatusConflict, gin.H{"error": "Only draft campaigns can be edited"})
		return
	}

	var req CampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := campaign.ValidatePolicy(req.Policy); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.apply(&cam)
	if err := database.GormDB.Save(&cam).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update campaign"})
		return
	}

	c.JSON(http.StatusOK, cam)
}

func (h *CampaignHandler) DeleteCampaign(c *gin.Context) {
	id := c.Param("id")

	var cam models.Campaign
	err := database.GormDB.First(&cam, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if cam.Status == models.CampaignStatusRunning {
		c.JSON(http.StatusConflict, gin.H{"error": "Stop the campaign before deleting it"})
		return
	}

	database.GormDB.Delete(&models.DispatchRecord{}, "campaign_id = ?", id)
	if err := database.GormDB.Delete(&cam).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete campaign"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Campaign deleted"})
}

// StartCampaign kicks off (or resumes) the dispatch loop and returns before
// the run completes. Progress is observed via stats polling or the websocket.
func (h *CampaignHandler) StartCampaign(c *gin.Context) {
	err := h.Engine.StartCampaign(c.Param("id"))
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"status": "Campaign started"})
		return
	}

	var vErr *campaign.ValidationError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
	case errors.As(err, &vErr), errors.Is(err, campaign.ErrNoSessionReady):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	}
}

func (h *CampaignHandler) PauseCampaign(c *gin.Context) {
	if err := h.Engine.PauseCampaign(c.Param("id")); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Campaign pausing"})
}

func (h *CampaignHandler) StopCampaign(c *gin.Context) {
	err := h.Engine.StopCampaign(c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Campaign stopping"})
}

func (h *CampaignHandler) GetStats(c *gin.Context) {
	id := c.Param("id")

	stats, err := h.Engine.GetStats(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Campaign not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var cam models.Campaign
	status := ""
	if err := database.GormDB.Select("status").First(&cam, "id = ?", id).Error; err == nil {
		status = cam.Status
	}

	c.JSON(http.StatusOK, gin.H{
		"campaign_id": id,
		"status":      status,
		"stats":       stats,
	})
}

// GetOutcomes lists the campaign's dispatch records in dispatch order.
func (h *CampaignHandler) GetOutcomes(c *gin.Context) {
	var records []models.DispatchRecord
	err := database.GormDB.
		Where("campaign_id = ?", c.Param("id")).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if records == nil {
		records = []models.DispatchRecord{}
	}

	c.JSON(http.StatusOK, records)
}
