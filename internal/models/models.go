package models

import (
	"encoding/json"
	"time"
)

// Campaign lifecycle statuses
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusRunning   = "running"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
	CampaignStatusFailed    = "failed"
)

// Send order modes
const (
	SendModeSequence = "sequence"
	SendModeRandom   = "random"
)

// Session rotation strategies
const (
	RotationRoundRobin       = "round_robin"
	RotationRandom           = "random"
	RotationLeastUsed        = "least_used"
	RotationPerformanceBased = "performance_based"
)

// Session liveness statuses
const (
	SessionStatusReady        = "ready"
	SessionStatusConnecting   = "connecting"
	SessionStatusDisconnected = "disconnected"
)

// Dispatch results
const (
	DispatchResultSuccess = "success"
	DispatchResultFailure = "failure"
)

// AntiBlockPolicy holds the rate-limiting rules applied before every send.
type AntiBlockPolicy struct {
	Enabled         bool `json:"enabled"`
	DelayMinSeconds int  `json:"delay_min_seconds"`
	DelayMaxSeconds int  `json:"delay_max_seconds"`
	DailyLimit      int  `json:"daily_limit"`
	CooldownHours   int  `json:"cooldown_hours"`
}

// CampaignStats counts dispatch outcomes. Sent and Failed are authoritative
// right after dispatch; Delivered, Read and Blocked are advanced later by
// gateway status acks.
type CampaignStats struct {
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Read      int `json:"read"`
	Failed    int `json:"failed"`
	Blocked   int `json:"blocked"`
}

// Campaign represents a bulk-send job
type Campaign struct {
	ID               string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name             string          `gorm:"type:varchar(255);not null" json:"name"`
	Status           string          `gorm:"type:varchar(20);default:'draft'" json:"status"`
	SendMode         string          `gorm:"type:varchar(20);default:'sequence'" json:"send_mode"`
	RotationStrategy string          `gorm:"type:varchar(30);default:'round_robin'" json:"rotation_strategy"`
	TemplateIDs      string          `gorm:"type:text" json:"template_ids"` // JSON array of template IDs
	SessionIDs       string          `gorm:"type:text" json:"session_ids"`  // JSON array of session IDs
	Targets          string          `gorm:"type:text" json:"targets"`      // JSON array of phone numbers
	Variables        string          `gorm:"type:text" json:"variables"`    // JSON flat variable map
	Rows             string          `gorm:"type:text" json:"rows"`         // JSON array of personalization rows
	RunOrder         string          `gorm:"type:text" json:"run_order"`    // JSON target order of the active run
	Cursor           int             `gorm:"default:0" json:"cursor"`       // next position in RunOrder
	Policy           AntiBlockPolicy `gorm:"embedded;embeddedPrefix:policy_" json:"policy"`
	Stats            CampaignStats   `gorm:"embedded;embeddedPrefix:stats_" json:"stats"`
	RunError         string          `gorm:"type:text" json:"run_error,omitempty"`
	LastRunAt        *time.Time      `json:"last_run_at,omitempty"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// Session represents a managed outbound messaging identity
type Session struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name           string    `gorm:"type:varchar(255)" json:"name"`
	Phone          string    `gorm:"type:varchar(50)" json:"phone"`
	Status         string    `gorm:"type:varchar(20);default:'disconnected'" json:"status"`
	SentToday      int       `gorm:"default:0" json:"sent_today"`
	QuotaDay       string    `gorm:"type:varchar(10)" json:"quota_day"` // calendar day SentToday belongs to
	TotalSent      int       `gorm:"default:0" json:"total_sent"`
	TotalDelivered int       `gorm:"default:0" json:"total_delivered"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Session) TableName() string {
	return "sessions"
}

// Ready reports whether the session is eligible to send.
func (s *Session) Ready() bool {
	return s.Status == SessionStatusReady
}

// Template represents a message template with {{placeholder}} variables
type Template struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Body      string    `gorm:"type:text" json:"body"`
	Variables string    `gorm:"type:text" json:"variables"` // JSON array of declared variable names
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Template) TableName() string {
	return "templates"
}

// DispatchRecord is the persisted outcome of one send attempt
type DispatchRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CampaignID       string    `gorm:"index;type:varchar(36)" json:"campaign_id"`
	SessionID        string    `gorm:"type:varchar(36)" json:"session_id"`
	Target           string    `gorm:"type:varchar(50)" json:"target"`
	Message          string    `gorm:"type:text" json:"message"`
	Result           string    `gorm:"type:varchar(20)" json:"result"`
	Reason           string    `gorm:"type:text" json:"reason,omitempty"`
	GatewayMessageID string    `gorm:"index;type:varchar(255)" json:"gateway_message_id,omitempty"`
	DeliveryStatus   string    `gorm:"type:varchar(20)" json:"delivery_status,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (DispatchRecord) TableName() string {
	return "dispatch_records"
}

// --- JSON column helpers ---

func decodeStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func encodeJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func (c *Campaign) TemplateIDList() []string { return decodeStrings(c.TemplateIDs) }
func (c *Campaign) SessionIDList() []string  { return decodeStrings(c.SessionIDs) }
func (c *Campaign) TargetList() []string     { return decodeStrings(c.Targets) }

func (c *Campaign) SetTemplateIDs(ids []string) { c.TemplateIDs = encodeJSON(ids) }
func (c *Campaign) SetSessionIDs(ids []string)  { c.SessionIDs = encodeJSON(ids) }
func (c *Campaign) SetTargets(targets []string) { c.Targets = encodeJSON(targets) }

// VariableMap decodes the campaign-level flat variable map.
func (c *Campaign) VariableMap() map[string]string {
	if c.Variables == "" {
		return nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(c.Variables), &out); err != nil {
		return nil
	}
	return out
}

func (c *Campaign) SetVariableMap(vars map[string]string) {
	c.Variables = encodeJSON(vars)
}

// RowList decodes the row-based personalization data, one row per target.
func (c *Campaign) RowList() []map[string]string {
	if c.Rows == "" {
		return nil
	}
	var out []map[string]string
	if err := json.Unmarshal([]byte(c.Rows), &out); err != nil {
		return nil
	}
	return out
}

func (c *Campaign) SetRowList(rows []map[string]string) {
	c.Rows = encodeJSON(rows)
}

// RunOrderList decodes the persisted target order of the active run.
func (c *Campaign) RunOrderList() []int {
	if c.RunOrder == "" {
		return nil
	}
	var out []int
	if err := json.Unmarshal([]byte(c.RunOrder), &out); err != nil {
		return nil
	}
	return out
}

func (c *Campaign) SetRunOrderList(order []int) {
	c.RunOrder = encodeJSON(order)
}

func (t *Template) VariableList() []string       { return decodeStrings(t.Variables) }
func (t *Template) SetVariableList(vars []string) { t.Variables = encodeJSON(vars) }
