package campaign

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-console/internal/models"
)

func readySession(id string) *models.Session {
	return &models.Session{ID: id, Status: models.SessionStatusReady}
}

func TestSelectorNoReadySession(t *testing.T) {
	s := NewSelector(models.RotationRoundRobin)

	_, err := s.Next([]*models.Session{
		{ID: "a", Status: models.SessionStatusDisconnected},
		{ID: "b", Status: models.SessionStatusConnecting},
	})

	assert.ErrorIs(t, err, ErrNoSessionReady)
}

func TestSelectorRoundRobinVisitsEachOnce(t *testing.T) {
	sessions := []*models.Session{readySession("a"), readySession("b"), readySession("c")}
	s := NewSelector(models.RotationRoundRobin)

	var visited []string
	for i := 0; i < len(sessions); i++ {
		sess, err := s.Next(sessions)
		require.NoError(t, err)
		visited = append(visited, sess.ID)
	}

	assert.Equal(t, []string{"a", "b", "c"}, visited)

	// And wraps around
	sess, err := s.Next(sessions)
	require.NoError(t, err)
	assert.Equal(t, "a", sess.ID)
}

func TestSelectorRoundRobinSkipsNotReady(t *testing.T) {
	sessions := []*models.Session{
		readySession("a"),
		{ID: "b", Status: models.SessionStatusDisconnected},
		readySession("c"),
	}
	s := NewSelector(models.RotationRoundRobin)

	first, _ := s.Next(sessions)
	second, _ := s.Next(sessions)

	assert.Equal(t, "a", first.ID)
	assert.Equal(t, "c", second.ID)
}

func TestSelectorLeastUsed(t *testing.T) {
	sessions := []*models.Session{readySession("a"), readySession("b"), readySession("c")}
	sessions[0].SentToday = 5
	sessions[1].SentToday = 2
	sessions[2].SentToday = 9

	s := NewSelector(models.RotationLeastUsed)
	sess, err := s.Next(sessions)

	require.NoError(t, err)
	assert.Equal(t, "b", sess.ID)
}

func TestSelectorLeastUsedTieBreaksByID(t *testing.T) {
	sessions := []*models.Session{readySession("c"), readySession("a"), readySession("b")}
	for _, sess := range sessions {
		sess.SentToday = 3
	}

	s := NewSelector(models.RotationLeastUsed)
	sess, err := s.Next(sessions)

	require.NoError(t, err)
	assert.Equal(t, "a", sess.ID)
}

func TestSelectorPerformanceBased(t *testing.T) {
	good := readySession("b")
	good.TotalSent = 10
	good.TotalDelivered = 9
	bad := readySession("a")
	bad.TotalSent = 10
	bad.TotalDelivered = 2

	s := NewSelector(models.RotationPerformanceBased)
	sess, err := s.Next([]*models.Session{bad, good})

	require.NoError(t, err)
	assert.Equal(t, "b", sess.ID)
}

func TestSelectorPerformanceBasedDefaultsToPerfectRatio(t *testing.T) {
	veteran := readySession("a")
	veteran.TotalSent = 100
	veteran.TotalDelivered = 99
	fresh := readySession("b") // never sent, ratio defaults to 1.0

	s := NewSelector(models.RotationPerformanceBased)
	sess, err := s.Next([]*models.Session{veteran, fresh})

	require.NoError(t, err)
	assert.Equal(t, "b", sess.ID)
}

func TestSelectorRandomPicksReadySession(t *testing.T) {
	sessions := []*models.Session{
		{ID: "a", Status: models.SessionStatusDisconnected},
		readySession("b"),
	}
	s := NewSelector(models.RotationRandom)

	for i := 0; i < 20; i++ {
		sess, err := s.Next(sessions)
		require.NoError(t, err)
		assert.Equal(t, "b", sess.ID)
	}
}
