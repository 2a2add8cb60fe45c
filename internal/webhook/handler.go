package webhook

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"whatsapp-console/internal/campaign"
	"whatsapp-console/internal/config"
)

// Handler receives asynchronous status callbacks from the messaging gateway.
// Delivery and read acks are the only source of the delivered/read/blocked
// counters; sent/failed are settled by the dispatch loop itself.
type Handler struct {
	Config *config.Config
	Engine *campaign.Engine
}

func NewHandler(cfg *config.Config, engine *campaign.Engine) *Handler {
	return &Handler{Config: cfg, Engine: engine}
}

func (h *Handler) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode != "" && token != "" {
		if mode == "subscribe" && token == h.Config.VerifyToken {
			logrus.Info("Webhook verified successfully")
			c.String(http.StatusOK, challenge)
		} else {
			c.Status(http.StatusForbidden)
		}
	} else {
		c.Status(http.StatusBadRequest)
	}
}

// StatusPayload is the gateway's status callback body.
type StatusPayload struct {
	Statuses []StatusEntry `json:"statuses"`
}

type StatusEntry struct {
	MessageID   string        `json:"id"`
	Status      string        `json:"status"` // sent, delivered, read, failed
	RecipientID string        `json:"recipient_id"`
	Errors      []StatusError `json:"errors,omitempty"`
}

type StatusError struct {
	Code  int    `json:"code"`
	Title string `json:"title"`
}

// Gateway error code for a recipient that blocked the sender.
const errCodeRecipientBlocked = 131050

func (h *Handler) HandleStatus(c *gin.Context) {
	var payload StatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		logrus.WithError(err).Warn("Invalid status webhook payload")
		c.Status(http.StatusBadRequest)
		return
	}

	for _, entry := range payload.Statuses {
		status := translateStatus(entry)
		if status == "" {
			continue
		}
		logrus.Debugf("Status ack %s for message %s", status, entry.MessageID)
		h.Engine.HandleStatusAck(entry.MessageID, status)
	}

	c.Status(http.StatusOK)
}

// translateStatus maps a gateway status entry onto the stats counters.
// "sent" confirmations are ignored (the dispatch loop already counted them);
// a failed entry with a block error counts as blocked.
func translateStatus(entry StatusEntry) string {
	switch entry.Status {
	case "delivered":
		return campaign.AckDelivered
	case "read":
		return campaign.AckRead
	case "failed":
		for _, e := range entry.Errors {
			if e.Code == errCodeRecipientBlocked {
				return campaign.AckBlocked
			}
		}
	}
	return ""
}
