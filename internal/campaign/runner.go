package campaign

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"whatsapp-console/internal/models"
)

// Cooperative control signals, checked between targets only. An in-flight
// send always completes before a signal takes effect.
const (
	signalNone int32 = iota
	signalPause
	signalStop
)

// runner executes one campaign run as a single sequential loop. There is no
// concurrent fan-out within a campaign; the inter-send delay doubles as the
// pacing mechanism.
type runner struct {
	e         *Engine
	mu        sync.Mutex // guards c between the loop and ack/stats readers
	c         *models.Campaign
	templates []*models.Template
	signal    int32 // atomic
	done      chan struct{}
}

func newRunner(e *Engine, c *models.Campaign, templates []*models.Template) *runner {
	return &runner{e: e, c: c, templates: templates, done: make(chan struct{})}
}

func (r *runner) run() {
	defer close(r.done)

	c := r.c
	targets := c.TargetList()
	order := c.RunOrderList()
	rows := c.RowList()
	flat := c.VariableMap()
	selector := NewSelector(c.RotationStrategy)

	// Template rotation stays aligned with the target position so a resumed
	// run continues the rotation where it left off.
	templateCursor := c.Cursor

	var fatal error

	for c.Cursor < len(order) {
		if atomic.LoadInt32(&r.signal) != signalNone {
			break
		}

		idx := order[c.Cursor]
		if idx < 0 || idx >= len(targets) {
			logrus.Warnf("Campaign %s has a stale run order entry %d, ending run", c.ID, idx)
			break
		}
		target := targets[idx]

		vars := flat
		if idx < len(rows) {
			vars = MergeVariables(flat, rows[idx])
		}

		tmpl := r.templates[templateCursor%len(r.templates)]
		templateCursor++

		now := time.Now()
		text := Resolve(tmpl.Body, vars)
		if strings.TrimSpace(text) == "" {
			r.record(Outcome{
				Target:    target,
				Result:    models.DispatchResultFailure,
				Reason:    ErrEmptyMessage.Error(),
				Timestamp: now,
			})
			continue
		}

		sessions, err := r.e.registry.Snapshot(c.SessionIDList(), now)
		if err != nil {
			fatal = err
			break
		}
		sess, err := selector.Next(sessions)
		if err != nil {
			fatal = err
			break
		}

		adm := r.e.policy.Admit(sess, target, c.Policy, now)
		if !adm.Allowed {
			// Denied sends consume no inter-send delay.
			r.record(Outcome{
				Target:    target,
				SessionID: sess.ID,
				Message:   text,
				Result:    models.DispatchResultFailure,
				Reason:    adm.Reason.Error(),
				Timestamp: now,
			})
			continue
		}

		// Claim the quota slot before the send. Admit saw a snapshot; the
		// reservation is the atomic check that holds across campaigns.
		if err := r.e.registry.TryReserve(sess.ID, c.Policy, now); err != nil {
			r.record(Outcome{
				Target:    target,
				SessionID: sess.ID,
				Message:   text,
				Result:    models.DispatchResultFailure,
				Reason:    err.Error(),
				Timestamp: now,
			})
			continue
		}

		res, err := r.e.sender.Send(sess.ID, target, text)
		outcome := Outcome{
			Target:    target,
			SessionID: sess.ID,
			Message:   text,
			Timestamp: now,
		}
		switch {
		case err != nil:
			outcome.Result = models.DispatchResultFailure
			outcome.Reason = err.Error()
			r.e.registry.Release(sess.ID)
		case !res.Success:
			outcome.Result = models.DispatchResultFailure
			outcome.Reason = (&GatewayError{Message: res.ErrorMessage}).Error()
			r.e.registry.Release(sess.ID)
		default:
			outcome.Result = models.DispatchResultSuccess
			outcome.GatewayMessageID = res.MessageID
			r.e.registry.CommitSend(sess.ID)
			r.e.ledger.Record(sess.ID, target, now)
		}
		r.record(outcome)

		if outcome.Result == models.DispatchResultSuccess && adm.Delay > 0 {
			time.Sleep(adm.Delay)
		}
	}

	r.finish(fatal)
}

// record folds the outcome into the stats, advances the cursor, persists
// both the dispatch record and the campaign, and notifies observers.
func (r *runner) record(o Outcome) {
	r.mu.Lock()
	c := r.c
	c.Stats = Apply(c.Stats, o)
	c.Cursor++

	rec := &models.DispatchRecord{
		CampaignID:       c.ID,
		SessionID:        o.SessionID,
		Target:           o.Target,
		Message:          o.Message,
		Result:           o.Result,
		Reason:           o.Reason,
		GatewayMessageID: o.GatewayMessageID,
	}
	if o.Result == models.DispatchResultSuccess {
		rec.DeliveryStatus = "sent"
	}
	if err := r.e.store.SaveRecord(rec); err != nil {
		logrus.WithError(err).Errorf("Failed to persist dispatch record for campaign %s", c.ID)
	}
	if err := r.e.store.SaveCampaign(c); err != nil {
		logrus.WithError(err).Errorf("Failed to persist campaign %s", c.ID)
	}
	r.mu.Unlock()

	r.e.emit("dispatch_outcome", map[string]interface{}{
		"campaign_id": c.ID,
		"outcome":     o,
	})
}

// finish settles the final lifecycle state of the run: failed on a fatal
// error, paused on a pause signal, completed on stop or exhaustion.
func (r *runner) finish(fatal error) {
	r.mu.Lock()
	c := r.c
	now := time.Now()
	c.LastRunAt = &now

	switch {
	case fatal != nil:
		c.RunError = fatal.Error()
		if err := Transition(c, models.CampaignStatusFailed); err != nil {
			logrus.WithError(err).Errorf("Campaign %s could not enter failed", c.ID)
		}
		logrus.WithError(fatal).Errorf("Campaign %s run aborted", c.ID)
	case atomic.LoadInt32(&r.signal) == signalPause:
		if err := Transition(c, models.CampaignStatusPaused); err != nil {
			logrus.WithError(err).Errorf("Campaign %s could not enter paused", c.ID)
		}
		logrus.Infof("Campaign %s paused at target %d of %d", c.ID, c.Cursor, len(c.RunOrderList()))
	default:
		if err := Transition(c, models.CampaignStatusCompleted); err != nil {
			logrus.WithError(err).Errorf("Campaign %s could not enter completed", c.ID)
		}
		logrus.Infof("Campaign %s completed: %d sent, %d failed", c.ID, c.Stats.Sent, c.Stats.Failed)
	}

	if err := r.e.store.SaveCampaign(c); err != nil {
		logrus.WithError(err).Errorf("Failed to persist campaign %s", c.ID)
	}
	r.mu.Unlock()

	r.e.removeRunner(c.ID)
	r.e.emit("campaign_update", c)
}
