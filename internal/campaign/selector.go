package campaign

import (
	"math/rand"
	"sort"

	"whatsapp-console/internal/models"
)

// Selector picks the sending session for the next target according to the
// campaign's rotation strategy. A Selector lives for one run; its round-robin
// cursor advances one position per call.
type Selector struct {
	strategy string
	cursor   int
}

func NewSelector(strategy string) *Selector {
	return &Selector{strategy: strategy}
}

// Next returns the session to use for the next send. Only ready sessions are
// eligible; ErrNoSessionReady is returned when none is.
func (s *Selector) Next(sessions []*models.Session) (*models.Session, error) {
	ready := make([]*models.Session, 0, len(sessions))
	for _, sess := range sessions {
		if sess.Ready() {
			ready = append(ready, sess)
		}
	}
	if len(ready) == 0 {
		return nil, ErrNoSessionReady
	}

	switch s.strategy {
	case models.RotationRandom:
		return ready[rand.Intn(len(ready))], nil
	case models.RotationLeastUsed:
		return leastUsed(ready), nil
	case models.RotationPerformanceBased:
		return bestPerforming(ready), nil
	default: // round_robin
		sess := ready[s.cursor%len(ready)]
		s.cursor++
		return sess, nil
	}
}

// leastUsed picks the ready session with the smallest daily counter, ties
// broken by session ID ascending.
func leastUsed(ready []*models.Session) *models.Session {
	sorted := append([]*models.Session(nil), ready...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SentToday != sorted[j].SentToday {
			return sorted[i].SentToday < sorted[j].SentToday
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[0]
}

// bestPerforming picks the ready session with the highest delivered/sent
// ratio. Sessions that never sent default to a perfect ratio.
func bestPerforming(ready []*models.Session) *models.Session {
	sorted := append([]*models.Session(nil), ready...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := successRatio(sorted[i]), successRatio(sorted[j])
		if ri != rj {
			return ri > rj
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[0]
}

func successRatio(s *models.Session) float64 {
	if s.TotalSent == 0 {
		return 1.0
	}
	return float64(s.TotalDelivered) / float64(s.TotalSent)
}
