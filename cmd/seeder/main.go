package main

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"whatsapp-console/internal/config"
	"whatsapp-console/internal/database"
	"whatsapp-console/internal/models"
)

// Seeds a couple of sessions, templates and a draft campaign for local
// development.
func main() {
	cfg := config.LoadConfig()
	database.InitGorm(cfg)

	sessions := []models.Session{
		{ID: uuid.NewString(), Name: "Primary line", Phone: "15550100001", Status: models.SessionStatusReady},
		{ID: uuid.NewString(), Name: "Backup line", Phone: "15550100002", Status: models.SessionStatusReady},
	}
	for i := range sessions {
		if err := database.GormDB.Create(&sessions[i]).Error; err != nil {
			logrus.Fatalf("Failed to seed session: %v", err)
		}
	}

	welcome := models.Template{
		ID:   uuid.NewString(),
		Name: "Order confirmation",
		Body: "Hi {{name}}, order {{orderNumber}} confirmed",
	}
	welcome.SetVariableList([]string{"name", "orderNumber"})

	promo := models.Template{
		ID:   uuid.NewString(),
		Name: "Store promo",
		Body: "Hello {{name}}! This week only: {{offer}} at {{store}}",
	}
	promo.SetVariableList([]string{"name", "offer", "store"})

	for _, tmpl := range []models.Template{welcome, promo} {
		if err := database.GormDB.Create(&tmpl).Error; err != nil {
			logrus.Fatalf("Failed to seed template: %v", err)
		}
	}

	demo := models.Campaign{
		ID:               uuid.NewString(),
		Name:             "Demo campaign",
		Status:           models.CampaignStatusDraft,
		SendMode:         models.SendModeSequence,
		RotationStrategy: models.RotationRoundRobin,
		Policy: models.AntiBlockPolicy{
			Enabled:         true,
			DelayMinSeconds: 5,
			DelayMaxSeconds: 15,
			DailyLimit:      200,
			CooldownHours:   24,
		},
	}
	demo.SetTemplateIDs([]string{promo.ID})
	demo.SetSessionIDs([]string{sessions[0].ID, sessions[1].ID})
	demo.SetRowList([]map[string]string{
		{"phone": "15550200001", "name": "Alice", "offer": "20% off shoes"},
		{"phone": "15550200002", "name": "Bob", "offer": "free delivery"},
		{"phone": "15550200003", "name": "Carol", "offer": "2 for 1 hats"},
	})
	demo.SetTargets([]string{"15550200001", "15550200002", "15550200003"})
	demo.SetVariableMap(map[string]string{"store": "Main Street"})

	if err := database.GormDB.Create(&demo).Error; err != nil {
		logrus.Fatalf("Failed to seed campaign: %v", err)
	}

	logrus.Infof("Seeded %d sessions, 2 templates and campaign %s", len(sessions), demo.ID)
}
