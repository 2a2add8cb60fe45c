package campaign

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"whatsapp-console/internal/models"
)

// memoryStore is an in-memory Store. It hands out copies the way the real
// database layer does, so tests catch code that relies on shared pointers.
type memoryStore struct {
	mu        sync.Mutex
	campaigns map[string]models.Campaign
	sessions  map[string]models.Session
	templates map[string]models.Template
	records   []models.DispatchRecord
	nextID    uint
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		campaigns: make(map[string]models.Campaign),
		sessions:  make(map[string]models.Session),
		templates: make(map[string]models.Template),
	}
}

func (m *memoryStore) LoadCampaign(id string) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (m *memoryStore) SaveCampaign(c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = *c
	return nil
}

func (m *memoryStore) LoadSessions(ids []string) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Session, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.sessions[id]; ok {
			copied := s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryStore) SaveSession(s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memoryStore) LoadTemplates(ids []string) ([]*models.Template, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Template, 0, len(ids))
	for _, id := range ids {
		if t, ok := m.templates[id]; ok {
			copied := t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryStore) SaveRecord(rec *models.DispatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == 0 {
		m.nextID++
		rec.ID = m.nextID
		m.records = append(m.records, *rec)
		return nil
	}
	for i := range m.records {
		if m.records[i].ID == rec.ID {
			m.records[i] = *rec
		}
	}
	return nil
}

func (m *memoryStore) FindRecordByMessageID(gatewayMessageID string) (*models.DispatchRecord, error) {
	if gatewayMessageID == "" {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].GatewayMessageID == gatewayMessageID {
			copied := m.records[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) setSessionStatus(id, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[id]
	s.Status = status
	m.sessions[id] = s
}

func (m *memoryStore) recordsFor(campaignID string) []models.DispatchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DispatchRecord
	for _, rec := range m.records {
		if rec.CampaignID == campaignID {
			out = append(out, rec)
		}
	}
	return out
}

type sentCall struct {
	sessionID string
	phone     string
	text      string
}

// fakeSender acknowledges every send unless told otherwise. onSend runs with
// the 1-based call count while the send is in flight, which lets tests signal
// pause or stop at an exact point of the run.
type fakeSender struct {
	mu      sync.Mutex
	calls   []sentCall
	failFor map[string]string // target -> gateway error message
	errFor  map[string]error  // target -> transport error
	onSend  func(n int)
}

func (f *fakeSender) Send(sessionID, phone, text string) (SendResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sentCall{sessionID: sessionID, phone: phone, text: text})
	n := len(f.calls)
	f.mu.Unlock()

	if f.onSend != nil {
		f.onSend(n)
	}
	if err, ok := f.errFor[phone]; ok {
		return SendResult{}, err
	}
	if msg, ok := f.failFor[phone]; ok {
		return SendResult{Success: false, ErrorMessage: msg}, nil
	}
	return SendResult{Success: true, MessageID: fmt.Sprintf("msg-%d", n)}, nil
}

func (f *fakeSender) sentTargets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, call := range f.calls {
		out = append(out, call.phone)
	}
	return out
}

func newTestEngine(store *memoryStore, sender *fakeSender) *Engine {
	return NewEngine(store, sender, nil)
}

func seedSession(store *memoryStore, id string) {
	store.sessions[id] = models.Session{ID: id, Name: id, Status: models.SessionStatusReady}
}

func seedTemplate(store *memoryStore, id, body string) {
	store.templates[id] = models.Template{ID: id, Name: id, Body: body}
}

func draftCampaign(id string, targets []string) *models.Campaign {
	c := &models.Campaign{
		ID:               id,
		Name:             "spring launch",
		Status:           models.CampaignStatusDraft,
		SendMode:         models.SendModeSequence,
		RotationStrategy: models.RotationRoundRobin,
	}
	c.SetTargets(targets)
	c.SetTemplateIDs([]string{"t1"})
	c.SetSessionIDs([]string{"s1"})
	return c
}

func mustLoad(t *testing.T, store *memoryStore, id string) *models.Campaign {
	t.Helper()
	c, err := store.LoadCampaign(id)
	require.NoError(t, err)
	return c
}

func TestStartCampaignRejectsInvalidDraft(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")
	c := draftCampaign("c1", nil) // no targets
	require.NoError(t, store.SaveCampaign(c))

	e := newTestEngine(store, &fakeSender{})
	err := e.StartCampaign("c1")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	got := mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusDraft, got.Status)
	assert.Zero(t, got.Stats.Sent)
}

func TestStartCampaignRequiresReadySession(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	store.setSessionStatus("s1", models.SessionStatusDisconnected)
	seedTemplate(store, "t1", "Hello there")
	require.NoError(t, store.SaveCampaign(draftCampaign("c1", []string{"111"})))

	e := newTestEngine(store, &fakeSender{})
	err := e.StartCampaign("c1")

	assert.ErrorIs(t, err, ErrNoSessionReady)
	assert.Equal(t, models.CampaignStatusDraft, mustLoad(t, store, "c1").Status)
}

func TestStartCampaignUnknownID(t *testing.T) {
	e := newTestEngine(newMemoryStore(), &fakeSender{})
	assert.ErrorIs(t, e.StartCampaign("nope"), gorm.ErrRecordNotFound)
}

func TestRunCompletesInTargetOrder(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")
	require.NoError(t, store.SaveCampaign(draftCampaign("c1", []string{"111", "222", "333"})))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	got := mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Equal(t, 3, got.Stats.Sent)
	assert.Zero(t, got.Stats.Failed)
	assert.Equal(t, 3, got.Cursor)
	assert.NotNil(t, got.LastRunAt)
	assert.Equal(t, []string{"111", "222", "333"}, sender.sentTargets())

	records := store.recordsFor("c1")
	require.Len(t, records, 3)
	for _, rec := range records {
		assert.Equal(t, models.DispatchResultSuccess, rec.Result)
		assert.NotEmpty(t, rec.GatewayMessageID)
		assert.Equal(t, "sent", rec.DeliveryStatus)
	}
}

func TestRunRandomModeVisitsEveryTargetOnce(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")
	c := draftCampaign("c1", []string{"111", "222", "333", "444"})
	c.SendMode = models.SendModeRandom
	require.NoError(t, store.SaveCampaign(c))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	got := mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Equal(t, 4, got.Stats.Sent)
	assert.ElementsMatch(t, []string{"111", "222", "333", "444"}, sender.sentTargets())
}

func TestRunPersonalizesFromRowsAndFlatVariables(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hi {{name}}, order {{orderNumber}} ships from {{store}}")

	c := draftCampaign("c1", []string{"111", "222"})
	c.SetRowList([]map[string]string{
		{"phone": "111", "name": "Sam", "orderNumber": "Z1", "store": "Downtown"},
		{"phone": "222", "name": "Ana", "orderNumber": "Z2"},
	})
	c.SetVariableMap(map[string]string{"store": "Main Street"})
	require.NoError(t, store.SaveCampaign(c))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	require.Len(t, sender.calls, 2)
	assert.Equal(t, "Hi Sam, order Z1 ships from Downtown", sender.calls[0].text)
	assert.Equal(t, "Hi Ana, order Z2 ships from Main Street", sender.calls[1].text)
}

func TestRunRotatesTemplates(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "first body")
	seedTemplate(store, "t2", "second body")

	c := draftCampaign("c1", []string{"111", "222", "333"})
	c.SetTemplateIDs([]string{"t1", "t2"})
	require.NoError(t, store.SaveCampaign(c))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	require.Len(t, sender.calls, 3)
	assert.Equal(t, "first body", sender.calls[0].text)
	assert.Equal(t, "second body", sender.calls[1].text)
	assert.Equal(t, "first body", sender.calls[2].text)
}

func TestRunBlankMessageIsRecoverable(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "   ")
	require.NoError(t, store.SaveCampaign(draftCampaign("c1", []string{"111", "222"})))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	got := mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Zero(t, got.Stats.Sent)
	assert.Equal(t, 2, got.Stats.Failed)
	assert.Empty(t, sender.calls)

	records := store.recordsFor("c1")
	require.Len(t, records, 2)
	assert.Equal(t, ErrEmptyMessage.Error(), records[0].Reason)
}

func TestRunGatewayRefusalIsRecoverable(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")
	require.NoError(t, store.SaveCampaign(draftCampaign("c1", []string{"111", "222", "333"})))

	sender := &fakeSender{failFor: map[string]string{"222": "number does not exist"}}
	e := newTestEngine(store, sender)
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	got := mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Equal(t, 2, got.Stats.Sent)
	assert.Equal(t, 1, got.Stats.Failed)
	assert.Equal(t, []string{"111", "222", "333"}, sender.sentTargets())

	records := store.recordsFor("c1")
	require.Len(t, records, 3)
	assert.Contains(t, records[1].Reason, "number does not exist")
}

func TestRunTransportErrorIsRecoverable(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")
	require.NoError(t, store.SaveCampaign(draftCampaign("c1", []string{"111", "222"})))

	sender := &fakeSender{errFor: map[string]error{"111": fmt.Errorf("connection reset")}}
	e := newTestEngine(store, sender)
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	got := mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Equal(t, 1, got.Stats.Sent)
	assert.Equal(t, 1, got.Stats.Failed)

	records := store.recordsFor("c1")
	require.Len(t, records, 2)
	assert.Equal(t, "connection reset", records[0].Reason)
}

func TestRunDailyLimitDeniesRemainder(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")

	c := draftCampaign("c1", []string{"111", "222", "333"})
	c.Policy = models.AntiBlockPolicy{Enabled: true, DailyLimit: 2}
	require.NoError(t, store.SaveCampaign(c))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	got := mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Equal(t, 2, got.Stats.Sent)
	assert.Equal(t, 1, got.Stats.Failed)
	assert.Equal(t, []string{"111", "222"}, sender.sentTargets())

	records := store.recordsFor("c1")
	require.Len(t, records, 3)
	assert.Equal(t, ErrDailyLimitExceeded.Error(), records[2].Reason)
}

func TestDailyLimitHoldsAcrossConcurrentCampaigns(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")

	policy := models.AntiBlockPolicy{Enabled: true, DailyLimit: 1}
	a := draftCampaign("c1", []string{"111"})
	a.Policy = policy
	b := draftCampaign("c2", []string{"222"})
	b.Policy = policy
	require.NoError(t, store.SaveCampaign(a))
	require.NoError(t, store.SaveCampaign(b))

	// Hold the winning send in flight while the other campaign races for
	// the last quota slot.
	release := make(chan struct{})
	sender := &fakeSender{}
	sender.onSend = func(int) { <-release }
	e := newTestEngine(store, sender)

	require.NoError(t, e.StartCampaign("c1"))
	require.NoError(t, e.StartCampaign("c2"))
	close(release)
	e.waitForRun("c1")
	e.waitForRun("c2")

	first := mustLoad(t, store, "c1")
	second := mustLoad(t, store, "c2")
	assert.Equal(t, 1, first.Stats.Sent+second.Stats.Sent)
	assert.Equal(t, 1, first.Stats.Failed+second.Stats.Failed)
	assert.Len(t, sender.calls, 1)

	sessions, err := store.LoadSessions([]string{"s1"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.LessOrEqual(t, sessions[0].SentToday, 1)
}

func TestFailedSendReleasesQuotaSlot(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")

	c := draftCampaign("c1", []string{"111", "222"})
	c.Policy = models.AntiBlockPolicy{Enabled: true, DailyLimit: 1}
	require.NoError(t, store.SaveCampaign(c))

	sender := &fakeSender{failFor: map[string]string{"111": "number does not exist"}}
	e := newTestEngine(store, sender)
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	// The refused send gives its slot back, so the second target still fits
	// under the limit.
	got := mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Equal(t, 1, got.Stats.Sent)
	assert.Equal(t, 1, got.Stats.Failed)
	assert.Equal(t, []string{"111", "222"}, sender.sentTargets())
}

func TestCooldownHoldsAcrossCampaigns(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")

	policy := models.AntiBlockPolicy{Enabled: true, CooldownHours: 24}
	a := draftCampaign("c1", []string{"111"})
	a.Policy = policy
	b := draftCampaign("c2", []string{"111"})
	b.Policy = policy
	require.NoError(t, store.SaveCampaign(a))
	require.NoError(t, store.SaveCampaign(b))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)

	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")
	require.NoError(t, e.StartCampaign("c2"))
	e.waitForRun("c2")

	first := mustLoad(t, store, "c1")
	second := mustLoad(t, store, "c2")
	assert.Equal(t, 1, first.Stats.Sent)
	assert.Equal(t, 1, second.Stats.Failed)
	assert.Zero(t, second.Stats.Sent)

	records := store.recordsFor("c2")
	require.Len(t, records, 1)
	assert.Equal(t, ErrCooldown.Error(), records[0].Reason)
}

func TestPauseAndResume(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")
	require.NoError(t, store.SaveCampaign(draftCampaign("c1", []string{"111", "222", "333", "444", "555"})))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)
	sender.onSend = func(n int) {
		if n == 2 {
			require.NoError(t, e.PauseCampaign("c1"))
		}
	}

	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	got := mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusPaused, got.Status)
	assert.Equal(t, 2, got.Stats.Sent)
	assert.Equal(t, 2, got.Cursor)

	// Resume finishes the remaining targets without repeating any.
	sender.onSend = nil
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	got = mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Equal(t, 5, got.Stats.Sent)
	assert.Equal(t, []string{"111", "222", "333", "444", "555"}, sender.sentTargets())
}

func TestStopCompletesEarlyAndIsTerminal(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")
	require.NoError(t, store.SaveCampaign(draftCampaign("c1", []string{"111", "222", "333", "444"})))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)
	sender.onSend = func(n int) {
		if n == 2 {
			require.NoError(t, e.StopCampaign("c1"))
		}
	}

	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	got := mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Equal(t, 2, got.Stats.Sent)

	assert.Error(t, e.StartCampaign("c1"))
}

func TestStopOnPausedCampaign(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")
	require.NoError(t, store.SaveCampaign(draftCampaign("c1", []string{"111", "222", "333"})))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)
	sender.onSend = func(n int) {
		if n == 1 {
			require.NoError(t, e.PauseCampaign("c1"))
		}
	}

	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")
	require.Equal(t, models.CampaignStatusPaused, mustLoad(t, store, "c1").Status)

	require.NoError(t, e.StopCampaign("c1"))
	got := mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Equal(t, 1, got.Stats.Sent)

	assert.Error(t, e.StartCampaign("c1"))
}

func TestPauseRequiresActiveRun(t *testing.T) {
	store := newMemoryStore()
	require.NoError(t, store.SaveCampaign(draftCampaign("c1", []string{"111"})))

	e := newTestEngine(store, &fakeSender{})
	assert.Error(t, e.PauseCampaign("c1"))
}

func TestSessionLossMidRunFailsCampaign(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")
	require.NoError(t, store.SaveCampaign(draftCampaign("c1", []string{"111", "222", "333"})))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)
	sender.onSend = func(n int) {
		if n == 1 {
			store.setSessionStatus("s1", models.SessionStatusDisconnected)
			e.Registry().Invalidate("s1")
		}
	}

	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	got := mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusFailed, got.Status)
	assert.Equal(t, ErrNoSessionReady.Error(), got.RunError)
	assert.Equal(t, 1, got.Stats.Sent)
	assert.Equal(t, 1, got.Cursor)
}

func TestDraftRestartResetsStats(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")

	c := draftCampaign("c1", []string{"111", "222"})
	c.Stats = models.CampaignStats{Sent: 9, Failed: 4}
	c.Cursor = 7
	c.RunError = "old failure"
	require.NoError(t, store.SaveCampaign(c))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	got := mustLoad(t, store, "c1")
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Equal(t, 2, got.Stats.Sent)
	assert.Zero(t, got.Stats.Failed)
	assert.Empty(t, got.RunError)
	assert.Equal(t, 2, got.Cursor)
}

func TestRoundRobinAlternatesSessions(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedSession(store, "s2")
	seedTemplate(store, "t1", "Hello there")

	c := draftCampaign("c1", []string{"111", "222", "333", "444"})
	c.SetSessionIDs([]string{"s1", "s2"})
	require.NoError(t, store.SaveCampaign(c))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	require.Len(t, sender.calls, 4)
	assert.Equal(t, "s1", sender.calls[0].sessionID)
	assert.Equal(t, "s2", sender.calls[1].sessionID)
	assert.Equal(t, "s1", sender.calls[2].sessionID)
	assert.Equal(t, "s2", sender.calls[3].sessionID)
}

func TestGetStats(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")
	require.NoError(t, store.SaveCampaign(draftCampaign("c1", []string{"111", "222"})))

	e := newTestEngine(store, &fakeSender{})
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	stats, err := e.GetStats("c1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sent)

	_, err = e.GetStats("nope")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestHandleStatusAck(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")
	require.NoError(t, store.SaveCampaign(draftCampaign("c1", []string{"111", "222"})))

	e := newTestEngine(store, &fakeSender{})
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	e.HandleStatusAck("msg-1", AckDelivered)
	e.HandleStatusAck("msg-1", AckDelivered) // duplicate, dropped
	e.HandleStatusAck("msg-1", AckRead)
	e.HandleStatusAck("msg-2", AckBlocked)
	e.HandleStatusAck("unknown", AckDelivered) // no matching record

	stats, err := e.GetStats("c1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, 1, stats.Read)
	assert.Equal(t, 1, stats.Blocked)
	assert.Equal(t, 2, stats.Sent)

	sessions, err := store.LoadSessions([]string{"s1"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 1, sessions[0].TotalDelivered)

	rec, err := store.FindRecordByMessageID("msg-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, AckRead, rec.DeliveryStatus)
}

func TestStatusAckReplayDoesNotInflateCounters(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")
	require.NoError(t, store.SaveCampaign(draftCampaign("c1", []string{"111"})))

	e := newTestEngine(store, &fakeSender{})
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	e.HandleStatusAck("msg-1", AckDelivered)
	e.HandleStatusAck("msg-1", AckRead)
	e.HandleStatusAck("msg-1", AckDelivered) // replay of an earlier status
	e.HandleStatusAck("msg-1", AckRead)

	stats, err := e.GetStats("c1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, 1, stats.Read)

	rec, err := store.FindRecordByMessageID("msg-1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, AckRead, rec.DeliveryStatus)
}

func TestDelayAppliesOnlyAfterSuccess(t *testing.T) {
	store := newMemoryStore()
	seedSession(store, "s1")
	seedTemplate(store, "t1", "Hello there")

	// Denied targets must not pay the inter-send delay, so a run where
	// everything is denied finishes immediately despite a long delay window.
	c := draftCampaign("c1", []string{"111", "222", "333"})
	c.Policy = models.AntiBlockPolicy{Enabled: true, DelayMinSeconds: 30, DelayMaxSeconds: 60, DailyLimit: 1}
	store.sessions["s1"] = models.Session{
		ID:        "s1",
		Status:    models.SessionStatusReady,
		SentToday: 1,
		QuotaDay:  time.Now().Format(quotaDayLayout),
	}
	require.NoError(t, store.SaveCampaign(c))

	sender := &fakeSender{}
	e := newTestEngine(store, sender)

	start := time.Now()
	require.NoError(t, e.StartCampaign("c1"))
	e.waitForRun("c1")

	assert.Less(t, time.Since(start), 5*time.Second)
	got := mustLoad(t, store, "c1")
	assert.Equal(t, 3, got.Stats.Failed)
	assert.Empty(t, sender.calls)
}
