package repository

import (
	"contest_room/internal/domain/model"
	"context"
	"sync"
)

type LeaderboardRepository interface {
	// Upsert overwrites the user's score. A user keeps the position of their first submission.
	Upsert(ctx context.Context, entry model.LeaderboardEntry) error
	// List returns entries in first-submission order.
	List(ctx context.Context) ([]model.LeaderboardEntry, error)
}

type memoryLeaderboardRepository struct {
	mu     sync.RWMutex
	order  []string
	scores map[string]string
}

func NewMemoryLeaderboardRepository() LeaderboardRepository {
	return &memoryLeaderboardRepository{scores: make(map[string]string)}
}

func (r *memoryLeaderboardRepository) Upsert(_ context.Context, entry model.LeaderboardEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scores[entry.Username]; !ok {
		r.order = append(r.order, entry.Username)
	}
	r.scores[entry.Username] = entry.Score
	return nil
}

func (r *memoryLeaderboardRepository) List(_ context.Context) ([]model.LeaderboardEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]model.LeaderboardEntry, 0, len(r.order))
	for _, name := range r.order {
		entries = append(entries, model.LeaderboardEntry{Username: name, Score: r.scores[name]})
	}
	return entries, nil
}
