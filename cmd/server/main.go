package main

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"whatsapp-console/internal/api"
	"whatsapp-console/internal/campaign"
	"whatsapp-console/internal/config"
	"whatsapp-console/internal/database"
	"whatsapp-console/internal/gateway"
	"whatsapp-console/internal/store"
	"whatsapp-console/internal/webhook"
	"whatsapp-console/internal/ws"
)

func main() {
	cfg := config.LoadConfig()
	database.InitGorm(cfg)

	hub := ws.NewHub()
	go hub.Run()

	gatewayClient := gateway.NewClient(cfg)
	campaignStore := store.NewGormStore(database.GormDB)
	engine := campaign.NewEngine(campaignStore, gatewayClient, hub)

	webhookHandler := webhook.NewHandler(cfg, engine)
	campaignHandler := api.NewCampaignHandler(engine)
	sessionHandler := api.NewSessionHandler(engine.Registry())
	templateHandler := api.NewTemplateHandler()

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Gateway status callbacks
	r.GET("/webhook", webhookHandler.VerifyWebhook)
	r.POST("/webhook", webhookHandler.HandleStatus)

	// Live progress events
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWs(c.Writer, c.Request)
	})

	apiGroup := r.Group("/api")
	{
		// Campaign Routes
		apiGroup.GET("/campaigns", campaignHandler.ListCampaigns)
		apiGroup.POST("/campaigns", campaignHandler.CreateCampaign)
		apiGroup.GET("/campaigns/:id", campaignHandler.GetCampaign)
		apiGroup.PUT("/campaigns/:id", campaignHandler.UpdateCampaign)
		apiGroup.DELETE("/campaigns/:id", campaignHandler.DeleteCampaign)
		apiGroup.POST("/campaigns/:id/start", campaignHandler.StartCampaign)
		apiGroup.POST("/campaigns/:id/pause", campaignHandler.PauseCampaign)
		apiGroup.POST("/campaigns/:id/stop", campaignHandler.StopCampaign)
		apiGroup.GET("/campaigns/:id/stats", campaignHandler.GetStats)
		apiGroup.GET("/campaigns/:id/outcomes", campaignHandler.GetOutcomes)

		// Session Routes
		apiGroup.GET("/sessions", sessionHandler.ListSessions)
		apiGroup.POST("/sessions", sessionHandler.CreateSession)
		apiGroup.PUT("/sessions/:id/status", sessionHandler.UpdateSessionStatus)
		apiGroup.DELETE("/sessions/:id", sessionHandler.DeleteSession)

		// Template Routes
		apiGroup.GET("/templates", templateHandler.ListTemplates)
		apiGroup.POST("/templates", templateHandler.CreateTemplate)
		apiGroup.POST("/templates/:id/preview", templateHandler.PreviewTemplate)
		apiGroup.DELETE("/templates/:id", templateHandler.DeleteTemplate)
	}

	logrus.Infof("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logrus.Fatalf("Failed to run server: %v", err)
	}
}
