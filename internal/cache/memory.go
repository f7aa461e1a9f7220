package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/actuallystonmai/flick-found/internal/domain"
)

const DefaultSize = 1024

// Memory is the in-process cache used when Redis is disabled.
type Memory struct {
	lru *expirable.LRU[string, []domain.Recommendation]
}

func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{lru: expirable.NewLRU[string, []domain.Recommendation](size, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, owner string, limit int) ([]domain.Recommendation, bool, error) {
	recs, ok := m.lru.Get(buildKey(owner, limit))
	if !ok {
		return nil, false, nil
	}
	return append([]domain.Recommendation(nil), recs...), true, nil
}

func (m *Memory) Set(_ context.Context, owner string, limit int, recs []domain.Recommendation) error {
	m.lru.Add(buildKey(owner, limit), append([]domain.Recommendation{}, recs...))
	return nil
}

func (m *Memory) ClearUserCache(_ context.Context, owner string) error {
	prefix := "rec:user:" + owner + ":limit:"
	for _, key := range m.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			m.lru.Remove(key)
		}
	}
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }
