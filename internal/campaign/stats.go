package campaign

import (
	"time"

	"whatsapp-console/internal/models"
)

// Outcome is the result of one send attempt, produced in target order.
type Outcome struct {
	Target           string    `json:"target"`
	SessionID        string    `json:"session_id"`
	Message          string    `json:"message"`
	Result           string    `json:"result"`
	Reason           string    `json:"reason,omitempty"`
	GatewayMessageID string    `json:"gateway_message_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// Apply folds one dispatch outcome into the stats. Only sent and failed are
// advanced here; delivery acks arrive later through ApplyAck.
func Apply(stats models.CampaignStats, o Outcome) models.CampaignStats {
	if o.Result == models.DispatchResultSuccess {
		stats.Sent++
	} else {
		stats.Failed++
	}
	return stats
}

// Gateway delivery statuses accepted by ApplyAck.
const (
	AckDelivered = "delivered"
	AckRead      = "read"
	AckBlocked   = "blocked"
)

// ackRank orders delivery statuses. A record only moves forward along
// sent -> delivered -> read -> blocked, so replayed or out-of-order acks
// cannot inflate the counters.
var ackRank = map[string]int{
	"sent":       1,
	AckDelivered: 2,
	AckRead:      3,
	AckBlocked:   4,
}

// ApplyAck folds an asynchronous delivery/read acknowledgment into the stats.
// Unknown statuses are ignored.
func ApplyAck(stats models.CampaignStats, status string) models.CampaignStats {
	switch status {
	case AckDelivered:
		stats.Delivered++
	case AckRead:
		stats.Read++
	case AckBlocked:
		stats.Blocked++
	}
	return stats
}
