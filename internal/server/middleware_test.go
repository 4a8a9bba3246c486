package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestVisitorsEvictIdleClients(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	table := newVisitors(rate.Limit(1), 1, time.Minute, clock.Now)

	first := table.get("10.0.0.1")
	table.get("10.0.0.2")
	assert.Equal(t, 2, table.len())
	assert.Same(t, first, table.get("10.0.0.1"))

	clock.now = clock.now.Add(30 * time.Second)
	table.get("10.0.0.1")

	// 10.0.0.2 has been idle for a full ttl, 10.0.0.1 only for 30s.
	clock.now = clock.now.Add(40 * time.Second)
	table.get("10.0.0.3")
	assert.Equal(t, 2, table.len())
	assert.Same(t, first, table.get("10.0.0.1"))

	clock.now = clock.now.Add(5 * time.Minute)
	table.get("10.0.0.4")
	assert.Equal(t, 1, table.len())
}

func TestVisitorsSweepIsLazy(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	table := newVisitors(rate.Limit(1), 1, time.Minute, clock.Now)

	table.get("10.0.0.1")
	clock.now = clock.now.Add(50 * time.Second)
	table.get("10.0.0.2")
	// Less than ttl since construction: no sweep yet.
	clock.now = clock.now.Add(5 * time.Second)
	table.get("10.0.0.3")
	assert.Equal(t, 3, table.len())
}

func TestEvictedClientGetsFreshBucket(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	table := newVisitors(rate.Limit(0.001), 1, time.Minute, clock.Now)

	assert.True(t, table.get("10.0.0.1").Allow())
	assert.False(t, table.get("10.0.0.1").Allow())

	clock.now = clock.now.Add(2 * time.Minute)
	assert.True(t, table.get("10.0.0.1").Allow())
}
