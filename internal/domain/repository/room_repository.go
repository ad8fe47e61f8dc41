package repository

import (
	"contest_room/internal/common"
	"contest_room/internal/domain/model"
	"context"
	"slices"
	"sync"
)

type RoomRepository interface {
	// Save stores room under room.Code, replacing any room with the same code.
	Save(ctx context.Context, room *model.Room) error
	FindByCode(ctx context.Context, code string) (*model.Room, error)
	Exists(ctx context.Context, code string) (bool, error)
}

type memoryRoomRepository struct {
	mu    sync.RWMutex
	rooms map[string]*model.Room
}

func NewMemoryRoomRepository() RoomRepository {
	return &memoryRoomRepository{rooms: make(map[string]*model.Room)}
}

func (r *memoryRoomRepository) Save(_ context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.Code] = cloneRoom(room)
	return nil
}

func (r *memoryRoomRepository) FindByCode(_ context.Context, code string) (*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneRoom(room), nil
}

func (r *memoryRoomRepository) Exists(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[code]
	return ok, nil
}

// cloneRoom keeps callers from mutating stored test data.
func cloneRoom(room *model.Room) *model.Room {
	c := *room
	c.PublicTestCases = slices.Clone(room.PublicTestCases)
	c.HiddenTestCases = slices.Clone(room.HiddenTestCases)
	return &c
}
