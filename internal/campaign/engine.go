package campaign

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"whatsapp-console/internal/models"
)

// Store is the engine's view of durable storage. Every state transition and
// every outcome is written back through it so paused runs are resumable.
type Store interface {
	LoadCampaign(id string) (*models.Campaign, error)
	SaveCampaign(c *models.Campaign) error
	LoadSessions(ids []string) ([]*models.Session, error)
	SaveSession(s *models.Session) error
	LoadTemplates(ids []string) ([]*models.Template, error)
	SaveRecord(rec *models.DispatchRecord) error
	FindRecordByMessageID(gatewayMessageID string) (*models.DispatchRecord, error)
}

// SendResult is what the external messaging gateway reports for one send.
type SendResult struct {
	Success      bool
	MessageID    string
	ErrorMessage string
}

// Sender delivers one message through the external messaging gateway.
type Sender interface {
	Send(sessionID, phone, text string) (SendResult, error)
}

// Events receives engine notifications, one per outcome plus lifecycle
// updates. A nil Events is allowed.
type Events interface {
	BroadcastEvent(eventType string, data interface{})
}

// Engine owns campaign runs: one sequential dispatch loop per running
// campaign, a shared session registry and a shared cooldown ledger.
type Engine struct {
	store    Store
	sender   Sender
	events   Events
	registry *SessionRegistry
	policy   *PolicyEngine
	ledger   *CooldownLedger

	mu      sync.Mutex
	runners map[string]*runner
}

func NewEngine(store Store, sender Sender, events Events) *Engine {
	ledger := NewCooldownLedger()
	return &Engine{
		store:    store,
		sender:   sender,
		events:   events,
		registry: NewSessionRegistry(store),
		policy:   NewPolicyEngine(ledger),
		ledger:   ledger,
		runners:  make(map[string]*runner),
	}
}

// Registry exposes the shared session registry, e.g. so the API layer can
// invalidate a session after editing its liveness status.
func (e *Engine) Registry() *SessionRegistry {
	return e.registry
}

// StartCampaign validates the campaign and kicks off its dispatch loop. It
// returns before the run completes. Draft campaigns begin a fresh run with
// zeroed stats; paused campaigns resume from the first not-yet-attempted
// target.
func (e *Engine) StartCampaign(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, active := e.runners[id]; active {
		return fmt.Errorf("campaign %s is already running", id)
	}

	c, err := e.store.LoadCampaign(id)
	if err != nil {
		return err
	}
	if !CanTransition(c.Status, models.CampaignStatusRunning) {
		return fmt.Errorf("campaign %s cannot start from status %s", id, c.Status)
	}
	if err := ValidateStart(c); err != nil {
		return err
	}

	templates, err := e.store.LoadTemplates(c.TemplateIDList())
	if err != nil {
		return err
	}
	if len(templates) == 0 {
		return NewValidationError("templates", "no referenced template exists")
	}

	sessions, err := e.registry.Snapshot(c.SessionIDList(), time.Now())
	if err != nil {
		return err
	}
	ready := 0
	for _, sess := range sessions {
		if sess.Ready() {
			ready++
		}
	}
	if ready == 0 {
		return ErrNoSessionReady
	}

	if c.Status == models.CampaignStatusDraft {
		c.Stats = models.CampaignStats{}
		c.Cursor = 0
		c.RunError = ""
		c.SetRunOrderList(buildRunOrder(len(c.TargetList()), c.SendMode))
	} else if len(c.RunOrderList()) == 0 {
		// Paused campaign persisted before a run order existed.
		c.SetRunOrderList(buildRunOrder(len(c.TargetList()), c.SendMode))
	}

	if err := Transition(c, models.CampaignStatusRunning); err != nil {
		return err
	}
	if err := e.store.SaveCampaign(c); err != nil {
		return err
	}

	r := newRunner(e, c, templates)
	e.runners[id] = r
	go r.run()

	logrus.Infof("Campaign %s started with %d targets", c.ID, len(c.TargetList()))
	e.emit("campaign_update", c)
	return nil
}

// PauseCampaign signals the running loop to stop after the in-flight target.
// The transition to paused happens when the loop observes the signal.
func (e *Engine) PauseCampaign(id string) error {
	e.mu.Lock()
	r := e.runners[id]
	e.mu.Unlock()

	if r == nil {
		return fmt.Errorf("campaign %s is not running", id)
	}
	atomic.StoreInt32(&r.signal, signalPause)
	return nil
}

// StopCampaign ends the campaign for good. A running loop finishes its
// in-flight target first; a paused campaign is completed directly. Stopped
// campaigns cannot be resumed.
func (e *Engine) StopCampaign(id string) error {
	e.mu.Lock()
	r := e.runners[id]
	e.mu.Unlock()

	if r != nil {
		atomic.StoreInt32(&r.signal, signalStop)
		return nil
	}

	c, err := e.store.LoadCampaign(id)
	if err != nil {
		return err
	}
	if err := Transition(c, models.CampaignStatusCompleted); err != nil {
		return fmt.Errorf("campaign %s is not running or paused", id)
	}
	if err := e.store.SaveCampaign(c); err != nil {
		return err
	}
	e.emit("campaign_update", c)
	return nil
}

// GetStats returns the campaign's current counters, live ones for an active
// run.
func (e *Engine) GetStats(id string) (models.CampaignStats, error) {
	e.mu.Lock()
	r := e.runners[id]
	e.mu.Unlock()

	if r != nil {
		r.mu.Lock()
		stats := r.c.Stats
		r.mu.Unlock()
		return stats, nil
	}

	c, err := e.store.LoadCampaign(id)
	if err != nil {
		return models.CampaignStats{}, err
	}
	return c.Stats, nil
}

// HandleStatusAck applies an asynchronous delivery/read/blocked ack from the
// gateway, correlated by gateway message ID. Unknown, duplicate and
// out-of-order acks are dropped.
func (e *Engine) HandleStatusAck(gatewayMessageID, status string) {
	rec, err := e.store.FindRecordByMessageID(gatewayMessageID)
	if err != nil || rec == nil {
		return
	}
	if ackRank[status] <= ackRank[rec.DeliveryStatus] {
		return
	}
	rec.DeliveryStatus = status
	if err := e.store.SaveRecord(rec); err != nil {
		logrus.WithError(err).Error("Failed to persist delivery status")
	}

	e.mu.Lock()
	r := e.runners[rec.CampaignID]
	e.mu.Unlock()

	if r != nil {
		r.mu.Lock()
		r.c.Stats = ApplyAck(r.c.Stats, status)
		if err := e.store.SaveCampaign(r.c); err != nil {
			logrus.WithError(err).Errorf("Failed to persist campaign %s", rec.CampaignID)
		}
		r.mu.Unlock()
	} else {
		c, err := e.store.LoadCampaign(rec.CampaignID)
		if err != nil {
			return
		}
		c.Stats = ApplyAck(c.Stats, status)
		if err := e.store.SaveCampaign(c); err != nil {
			logrus.WithError(err).Errorf("Failed to persist campaign %s", rec.CampaignID)
		}
	}

	if status == AckDelivered {
		e.registry.RecordDelivered(rec.SessionID)
	}
	e.emit("status_ack", map[string]interface{}{
		"campaign_id": rec.CampaignID,
		"target":      rec.Target,
		"status":      status,
	})
}

func (e *Engine) removeRunner(id string) {
	e.mu.Lock()
	delete(e.runners, id)
	e.mu.Unlock()
}

func (e *Engine) emit(eventType string, data interface{}) {
	if e.events != nil {
		e.events.BroadcastEvent(eventType, data)
	}
}

// waitForRun blocks until the campaign's active run finishes, if one is live.
func (e *Engine) waitForRun(id string) {
	e.mu.Lock()
	r := e.runners[id]
	e.mu.Unlock()
	if r != nil {
		<-r.done
	}
}

// buildRunOrder produces the target visit order for a fresh run: sequential
// positions, shuffled once when the send mode is random.
func buildRunOrder(n int, sendMode string) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if sendMode == models.SendModeRandom {
		rand.Shuffle(n, func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}
