package service

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/spec-kit/itsupport-service/internal/persistence"
)

// Claimer grants one worker at a time the right to start a ticket's workflow.
type Claimer interface {
	// Claim reports false when the slot is already held.
	Claim(ctx context.Context, ticketID string) (bool, error)
	Release(ctx context.Context, ticketID string) error
}

type redisClaimer struct {
	redis *persistence.Redis
	ttl   time.Duration
}

// NewRedisClaimer stores claims in Redis so every replica observes them.
func NewRedisClaimer(redis *persistence.Redis, ttl time.Duration) Claimer {
	return &redisClaimer{redis: redis, ttl: ttl}
}

func (c *redisClaimer) Claim(ctx context.Context, ticketID string) (bool, error) {
	return c.redis.Claim(ctx, ticketID, c.ttl)
}

func (c *redisClaimer) Release(ctx context.Context, ticketID string) error {
	return c.redis.Release(ctx, ticketID)
}

const localClaimCapacity = 10000

type localClaimer struct {
	mu     sync.Mutex
	claims *expirable.LRU[string, time.Time]
}

// NewLocalClaimer keeps claims in process memory; they expire after ttl.
func NewLocalClaimer(ttl time.Duration) Claimer {
	return &localClaimer{
		claims: expirable.NewLRU[string, time.Time](localClaimCapacity, nil, ttl),
	}
}

func (c *localClaimer) Claim(_ context.Context, ticketID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.claims.Get(ticketID); held {
		return false, nil
	}
	c.claims.Add(ticketID, time.Now())
	return true, nil
}

func (c *localClaimer) Release(_ context.Context, ticketID string) error {
	c.claims.Remove(ticketID)
	return nil
}
