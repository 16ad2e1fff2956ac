package server

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_PerClient(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(0.001, 1)

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.Equal(t, 2, rl.Clients())
}

func TestRateLimiter_Disabled(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(0, 0)
	for range 100 {
		assert.True(t, rl.Allow("10.0.0.1"))
	}
}

func TestRateLimiter_PrunesIdleClients(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(10, 1)
	now := time.Now()
	rl.now = func() time.Time { return now }

	for i := range maxTrackedClients {
		rl.Allow("client-" + strconv.Itoa(i))
	}
	assert.Equal(t, maxTrackedClients, rl.Clients())

	now = now.Add(clientIdleTTL + time.Second)
	rl.Allow("fresh")
	assert.Equal(t, 1, rl.Clients())
}
