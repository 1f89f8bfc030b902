package repository

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/mentor-portal-api/internal/attendance"
)

// DraftRepository keeps a mentor's staged, not yet submitted toggles for a
// day. Drafts live in a Redis hash per mentor and date; without a client
// they are held in process memory.
type DraftRepository struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.Mutex
	local map[string]attendance.Day
}

// NewDraftRepository constructs the repository.
func NewDraftRepository(client *redis.Client, ttl time.Duration) *DraftRepository {
	if ttl <= 0 {
		ttl = 36 * time.Hour
	}
	return &DraftRepository{client: client, ttl: ttl, local: make(map[string]attendance.Day)}
}

func draftKey(mentorID, date string) string {
	return fmt.Sprintf("attendance:draft:%s:%s", mentorID, date)
}

// Load returns the staged toggles, empty when nothing is staged.
func (r *DraftRepository) Load(ctx context.Context, mentorID, date string) (attendance.Day, error) {
	key := draftKey(mentorID, date)
	if r.client == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.local[key].Clone(), nil
	}

	raw, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", key, err)
	}
	day := make(attendance.Day, len(raw))
	for id, value := range raw {
		present, err := strconv.ParseBool(value)
		if err != nil {
			continue
		}
		day[id] = present
	}
	return day, nil
}

// Stage writes toggles into the draft, replacing earlier values per student.
func (r *DraftRepository) Stage(ctx context.Context, mentorID, date string, entries attendance.Day) error {
	if len(entries) == 0 {
		return nil
	}
	key := draftKey(mentorID, date)
	if r.client == nil {
		r.mu.Lock()
		defer r.mu.Unlock()
		day, ok := r.local[key]
		if !ok {
			day = make(attendance.Day, len(entries))
			r.local[key] = day
		}
		for id, present := range entries {
			day[id] = present
		}
		return nil
	}

	values := make(map[string]interface{}, len(entries))
	for id, present := range entries {
		values[id] = strconv.FormatBool(present)
	}
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, values)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis stage %s: %w", key, err)
	}
	return nil
}

// Clear drops the draft after a successful submit.
func (r *DraftRepository) Clear(ctx context.Context, mentorID, date string) error {
	key := draftKey(mentorID, date)
	if r.client == nil {
		r.mu.Lock()
		delete(r.local, key)
		r.mu.Unlock()
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}
