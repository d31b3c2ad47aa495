package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldProcessEmptySetMonitorsEverything(t *testing.T) {
	s := NewScope(&mockMonitors{}, nil)
	assert.True(t, s.ShouldProcess(context.Background(), 123))
}

func TestShouldProcessRespectsAllowlist(t *testing.T) {
	s := NewScope(&mockMonitors{members: map[int64]bool{100: true}}, nil)
	assert.True(t, s.ShouldProcess(context.Background(), 100))
	assert.False(t, s.ShouldProcess(context.Background(), 200))
}

func TestShouldProcessFailsOpenOnStoreErrors(t *testing.T) {
	s := NewScope(&mockMonitors{countErr: errors.New("db locked")}, nil)
	assert.True(t, s.ShouldProcess(context.Background(), 123))

	s = NewScope(&mockMonitors{members: map[int64]bool{1: true}, isErr: errors.New("db locked")}, nil)
	assert.True(t, s.ShouldProcess(context.Background(), 123))
}
