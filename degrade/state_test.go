package degrade

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func applyOutcomes(s *State, outcomes ...bool) {
	now := time.Now().UTC()
	for _, ok := range outcomes {
		var err error
		if !ok {
			err = errors.New("probe failed")
		}
		s.apply(err, now, DefaultFailureThreshold)
	}
}

func TestState_Initial(t *testing.T) {
	t.Parallel()

	s := newState("account_open")
	require.True(t, s.Available)
	require.Equal(t, StatusAvailable, s.Status)
	require.Zero(t, s.ConsecutiveFailures)
	require.Zero(t, s.Probes)
}

func TestState_Apply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		outcomes     []bool
		wantAvail    bool
		wantFailures uint
	}{
		{
			name:         "six failures degrade",
			outcomes:     []bool{false, false, false, false, false, false},
			wantAvail:    false,
			wantFailures: 6,
		},
		{
			name:         "five failures stay available",
			outcomes:     []bool{false, false, false, false, false},
			wantAvail:    true,
			wantFailures: 5,
		},
		{
			name:         "success after failures",
			outcomes:     []bool{false, false, true},
			wantAvail:    true,
			wantFailures: 0,
		},
		{
			name:         "success after degradation",
			outcomes:     []bool{false, false, false, false, false, false, false, false, true},
			wantAvail:    true,
			wantFailures: 0,
		},
		{
			name:         "counter is capped",
			outcomes:     []bool{false, false, false, false, false, false, false, false, false, false},
			wantAvail:    false,
			wantFailures: DefaultFailureThreshold + 1,
		},
		{
			name:         "repeated successes",
			outcomes:     []bool{true, true, true},
			wantAvail:    true,
			wantFailures: 0,
		},
		{
			name:         "streak restarts after success",
			outcomes:     []bool{false, false, false, false, false, true, false, false, false, false, false},
			wantAvail:    true,
			wantFailures: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			s := newState("test")
			applyOutcomes(&s, tt.outcomes...)

			require.Equal(t, tt.wantAvail, s.Available)
			require.Equal(t, statusOf(tt.wantAvail), s.Status)
			require.Equal(t, tt.wantFailures, s.ConsecutiveFailures)
			require.Equal(t, uint64(len(tt.outcomes)), s.Probes)
		})
	}
}

func TestState_Apply_Bookkeeping(t *testing.T) {
	t.Parallel()

	s := newState("test")
	failedAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s.apply(errors.New("connection refused"), failedAt, DefaultFailureThreshold)

	require.Equal(t, failedAt, s.LastCheck)
	require.Equal(t, failedAt, s.LastFailure)
	require.True(t, s.LastSuccess.IsZero())
	require.Equal(t, "connection refused", s.LastError)

	succeededAt := failedAt.Add(5 * time.Second)
	s.apply(nil, succeededAt, DefaultFailureThreshold)

	require.Equal(t, succeededAt, s.LastCheck)
	require.Equal(t, succeededAt, s.LastSuccess)
	require.Equal(t, failedAt, s.LastFailure)
	require.Empty(t, s.LastError)
}

func TestState_Apply_ZeroThreshold(t *testing.T) {
	t.Parallel()

	s := newState("test")
	s.apply(errors.New("boom"), time.Now(), 0)

	require.False(t, s.Available)
	require.Equal(t, uint(1), s.ConsecutiveFailures)
}

func TestState_Apply_RandomSequences(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42)) // nolint:gosec // Deterministic test data
	for range 200 {
		s := newState("test")
		streak := uint(0)

		for range 1 + rng.Intn(40) {
			ok := rng.Intn(3) == 0
			applyOutcomes(&s, ok)

			if ok {
				streak = 0
				require.True(t, s.Available, "available after a success")
				require.Zero(t, s.ConsecutiveFailures)
				continue
			}

			streak++
			require.Equal(t, min(streak, DefaultFailureThreshold+1), s.ConsecutiveFailures)
			require.Equal(t, streak <= DefaultFailureThreshold, s.Available)
		}
	}
}
