package campaign

import (
	"math/rand"
	"sync"
	"time"

	"whatsapp-console/internal/models"
)

// Admission is the policy engine's verdict for one (session, target) pair.
type Admission struct {
	Allowed bool
	Delay   time.Duration
	Reason  error // ErrDailyLimitExceeded or ErrCooldown when denied
}

// CooldownLedger remembers when a session last messaged a target. It is
// shared by every campaign so cooldowns hold across concurrent runs.
type CooldownLedger struct {
	mu       sync.Mutex
	lastSend map[string]time.Time // sessionID|target
}

func NewCooldownLedger() *CooldownLedger {
	return &CooldownLedger{lastSend: make(map[string]time.Time)}
}

func ledgerKey(sessionID, target string) string {
	return sessionID + "|" + target
}

func (l *CooldownLedger) Record(sessionID, target string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastSend[ledgerKey(sessionID, target)] = at
}

func (l *CooldownLedger) LastSend(sessionID, target string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.lastSend[ledgerKey(sessionID, target)]
	return at, ok
}

// PolicyEngine decides whether a send may proceed and with which inter-send
// delay, according to the campaign's anti-block policy.
type PolicyEngine struct {
	ledger *CooldownLedger
}

func NewPolicyEngine(ledger *CooldownLedger) *PolicyEngine {
	return &PolicyEngine{ledger: ledger}
}

// Admit checks the daily quota and the per-target cooldown for the session.
// When the policy is disabled everything is allowed with no delay.
func (p *PolicyEngine) Admit(session *models.Session, target string, policy models.AntiBlockPolicy, now time.Time) Admission {
	if !policy.Enabled {
		return Admission{Allowed: true}
	}

	// DailyLimit 0 means no daily cap.
	if policy.DailyLimit > 0 && session.SentToday >= policy.DailyLimit {
		return Admission{Reason: ErrDailyLimitExceeded}
	}

	if policy.CooldownHours > 0 {
		if last, ok := p.ledger.LastSend(session.ID, target); ok {
			cooldown := time.Duration(policy.CooldownHours) * time.Hour
			if now.Sub(last) < cooldown {
				return Admission{Reason: ErrCooldown}
			}
		}
	}

	return Admission{Allowed: true, Delay: drawDelay(policy)}
}

// drawDelay picks an integer number of seconds uniformly from the closed
// interval [DelayMinSeconds, DelayMaxSeconds].
func drawDelay(policy models.AntiBlockPolicy) time.Duration {
	min, max := policy.DelayMinSeconds, policy.DelayMaxSeconds
	if max < min {
		max = min
	}
	if max <= 0 {
		return 0
	}
	secs := min + rand.Intn(max-min+1)
	return time.Duration(secs) * time.Second
}
