package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aretw0/forge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to domain.RunnableState
		want     bool
	}{
		{domain.StateCreated, domain.StateReady, true},
		{domain.StateReady, domain.StateRunning, true},
		{domain.StateRunning, domain.StateDone, true},
		{domain.StateCreated, domain.StateFailed, true},
		{domain.StateRunning, domain.StateFailed, true},

		// Skips and backwards moves
		{domain.StateCreated, domain.StateRunning, false},
		{domain.StateReady, domain.StateDone, false},
		{domain.StateRunning, domain.StateReady, false},
		{domain.StateReady, domain.StateCreated, false},
		{domain.StateRunning, domain.StateRunning, false},

		// Terminal states are final
		{domain.StateDone, domain.StateFailed, false},
		{domain.StateFailed, domain.StateDone, false},

		{domain.RunnableState("bogus"), domain.StateReady, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, domain.CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidateTransition_WrapsSentinel(t *testing.T) {
	err := domain.ValidateTransition(domain.StateDone, domain.StateRunning)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "done -> running")

	assert.NoError(t, domain.ValidateTransition(domain.StateReady, domain.StateRunning))
}

func TestListenerError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &domain.ListenerError{
		Index: 1,
		Event: domain.StateChangeEvent{Old: domain.StateReady, New: domain.StateRunning},
		Err:   cause,
	}

	assert.ErrorIs(t, err, domain.ErrListenerFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "listener 1 on ready -> running: boom", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))

	var le *domain.ListenerError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &le)
	assert.Equal(t, 1, le.Index)
}

func TestLine_EffectiveKind(t *testing.T) {
	assert.Equal(t, domain.LineNormal, domain.Line{}.EffectiveKind())
	assert.Equal(t, domain.LineFailure, domain.Line{Kind: domain.LineFailure}.EffectiveKind())
}
