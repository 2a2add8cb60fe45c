package campaign

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"whatsapp-console/internal/models"
)

const quotaDayLayout = "2006-01-02"

// SessionRegistry is the single writer for session counters. Concurrent
// campaigns sharing a session all mutate it through the registry, which keeps
// the daily-limit bookkeeping consistent.
type SessionRegistry struct {
	mu    sync.Mutex
	store Store
	cache map[string]*models.Session
}

func NewSessionRegistry(store Store) *SessionRegistry {
	return &SessionRegistry{store: store, cache: make(map[string]*models.Session)}
}

// Snapshot returns copies of the requested sessions with their daily counter
// rolled over to the current calendar day. Copies keep readers free of the
// registry lock.
func (r *SessionRegistry) Snapshot(ids []string, now time.Time) ([]*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded(ids); err != nil {
		return nil, err
	}

	out := make([]*models.Session, 0, len(ids))
	for _, id := range ids {
		sess, ok := r.cache[id]
		if !ok {
			continue
		}
		r.rollQuota(sess, now)
		copied := *sess
		out = append(out, &copied)
	}
	return out, nil
}

// TryReserve claims one daily-quota slot for the session. The check and the
// increment happen under the registry lock, so two campaigns sharing the
// session cannot both pass at the last slot. A claim whose send does not go
// through must be returned with Release.
func (r *SessionRegistry) TryReserve(sessionID string, policy models.AntiBlockPolicy, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLoaded([]string{sessionID}); err != nil {
		return err
	}
	sess, ok := r.cache[sessionID]
	if !ok {
		return ErrNoSessionReady
	}
	r.rollQuota(sess, now)
	if policy.Enabled && policy.DailyLimit > 0 && sess.SentToday >= policy.DailyLimit {
		return ErrDailyLimitExceeded
	}
	sess.SentToday++
	return nil
}

// Release returns a quota slot claimed by TryReserve after a send that did
// not go through.
func (r *SessionRegistry) Release(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.cache[sessionID]; ok && sess.SentToday > 0 {
		sess.SentToday--
	}
}

// CommitSend finalizes a claimed slot after a successful send and persists
// the counters.
func (r *SessionRegistry) CommitSend(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.cache[sessionID]
	if !ok {
		return
	}
	sess.TotalSent++
	if err := r.store.SaveSession(sess); err != nil {
		logrus.WithError(err).Errorf("Failed to persist counters for session %s", sessionID)
	}
}

// RecordDelivered advances the session's delivery counter when the gateway
// acknowledges a message.
func (r *SessionRegistry) RecordDelivered(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.cache[sessionID]
	if !ok {
		loaded, err := r.store.LoadSessions([]string{sessionID})
		if err != nil || len(loaded) == 0 {
			return
		}
		sess = loaded[0]
		r.cache[sess.ID] = sess
	}
	sess.TotalDelivered++
	if err := r.store.SaveSession(sess); err != nil {
		logrus.WithError(err).Errorf("Failed to persist counters for session %s", sessionID)
	}
}

// Invalidate drops a session from the cache so the next snapshot rereads it,
// e.g. after its liveness status changed through the API.
func (r *SessionRegistry) Invalidate(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, sessionID)
}

func (r *SessionRegistry) ensureLoaded(ids []string) error {
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := r.cache[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	loaded, err := r.store.LoadSessions(missing)
	if err != nil {
		return err
	}
	for _, sess := range loaded {
		r.cache[sess.ID] = sess
	}
	return nil
}

// rollQuota resets the daily counter when the calendar day changed. Caller
// holds the registry lock.
func (r *SessionRegistry) rollQuota(sess *models.Session, now time.Time) {
	day := now.Format(quotaDayLayout)
	if sess.QuotaDay != day {
		sess.QuotaDay = day
		sess.SentToday = 0
	}
}
