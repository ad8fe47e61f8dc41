package repository

import (
	"contest_room/internal/common"
	"contest_room/internal/domain/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisRoomRepository struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisRoomRepository stores each room as a JSON string under "<prefix>:room:<code>".
func NewRedisRoomRepository(rdb *redis.Client, prefix string) RoomRepository {
	return &redisRoomRepository{rdb: rdb, prefix: prefix}
}

func (r *redisRoomRepository) key(code string) string {
	return r.prefix + ":room:" + code
}

func (r *redisRoomRepository) Save(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("redisRoomRepository.Save: %w", err)
	}
	if err := r.rdb.Set(ctx, r.key(room.Code), data, 0).Err(); err != nil {
		return fmt.Errorf("redisRoomRepository.Save: %w", err)
	}
	return nil
}

func (r *redisRoomRepository) FindByCode(ctx context.Context, code string) (*model.Room, error) {
	data, err := r.rdb.Get(ctx, r.key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("redisRoomRepository.FindByCode: %w", err)
	}
	room := &model.Room{}
	if err := json.Unmarshal(data, room); err != nil {
		return nil, fmt.Errorf("redisRoomRepository.FindByCode: decode room %s: %w", code, err)
	}
	return room, nil
}

func (r *redisRoomRepository) Exists(ctx context.Context, code string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(code)).Result()
	if err != nil {
		return false, fmt.Errorf("redisRoomRepository.Exists: %w", err)
	}
	return n > 0, nil
}

// upsertScoreScript writes the score and appends the user to the order list only on first write,
// so concurrent first submissions cannot both append.
var upsertScoreScript = redis.NewScript(`
if redis.call("HSET", KEYS[1], ARGV[1], ARGV[2]) == 1 then
    redis.call("RPUSH", KEYS[2], ARGV[1])
end
return 1
`)

type redisLeaderboardRepository struct {
	rdb       *redis.Client
	scoresKey string
	orderKey  string
}

// NewRedisLeaderboardRepository keeps scores in a hash and first-submission order in a list.
func NewRedisLeaderboardRepository(rdb *redis.Client, prefix string) LeaderboardRepository {
	return &redisLeaderboardRepository{
		rdb:       rdb,
		scoresKey: prefix + ":leaderboard:scores",
		orderKey:  prefix + ":leaderboard:order",
	}
}

func (r *redisLeaderboardRepository) Upsert(ctx context.Context, entry model.LeaderboardEntry) error {
	err := upsertScoreScript.Run(ctx, r.rdb, []string{r.scoresKey, r.orderKey}, entry.Username, entry.Score).Err()
	if err != nil {
		return fmt.Errorf("redisLeaderboardRepository.Upsert: %w", err)
	}
	return nil
}

func (r *redisLeaderboardRepository) List(ctx context.Context) ([]model.LeaderboardEntry, error) {
	var (
		orderCmd  *redis.StringSliceCmd
		scoresCmd *redis.MapStringStringCmd
	)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		orderCmd = pipe.LRange(ctx, r.orderKey, 0, -1)
		scoresCmd = pipe.HGetAll(ctx, r.scoresKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redisLeaderboardRepository.List: %w", err)
	}

	scores := scoresCmd.Val()
	entries := make([]model.LeaderboardEntry, 0, len(orderCmd.Val()))
	for _, name := range orderCmd.Val() {
		score, ok := scores[name]
		if !ok {
			continue
		}
		entries = append(entries, model.LeaderboardEntry{Username: name, Score: score})
	}
	return entries, nil
}
