package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"debate-lab-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Queue is a Redis implementation of app.QueueRepository, shared by every
// instance of the service.
// Entries are stored as:   ZADD battle:queue:{code} {enqueuedAtMillis} {studentID}
// Nicknames are stored as: HSET battle:queue:{code}:nick {studentID} {nickname}
type Queue struct {
	client *redis.Client
}

// claimScript pops the two oldest members only when at least two are waiting,
// so concurrent matchers never split or share a pair.
var claimScript = redis.NewScript(`
if redis.call('ZCARD', KEYS[1]) < 2 then
	return {}
end
local popped = redis.call('ZPOPMIN', KEYS[1], 2)
local out = {}
for i = 1, #popped, 2 do
	local member = popped[i]
	local nick = redis.call('HGET', KEYS[2], member)
	redis.call('HDEL', KEYS[2], member)
	table.insert(out, member)
	table.insert(out, popped[i + 1])
	table.insert(out, nick or member)
end
return out
`)

func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

func (q *Queue) Enqueue(ctx context.Context, entry domain.QueueEntry) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddNX(ctx, q.key(entry.ClassCode), redis.Z{
			Score:  float64(entry.EnqueuedAt.UnixMilli()),
			Member: entry.StudentID,
		})
		pipe.HSet(ctx, q.nickKey(entry.ClassCode), entry.StudentID, entry.Nickname)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

func (q *Queue) Remove(ctx context.Context, classCode, studentID string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.key(classCode), studentID)
		pipe.HDel(ctx, q.nickKey(classCode), studentID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("dequeue: %w", err)
	}
	return nil
}

func (q *Queue) List(ctx context.Context, classCode string) ([]domain.QueueEntry, error) {
	members, err := q.client.ZRangeWithScores(ctx, q.key(classCode), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	if len(members) == 0 {
		return []domain.QueueEntry{}, nil
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.Member.(string)
	}
	nicks, err := q.client.HMGet(ctx, q.nickKey(classCode), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("list queue nicknames: %w", err)
	}

	out := make([]domain.QueueEntry, len(members))
	for i, m := range members {
		nick, _ := nicks[i].(string)
		if nick == "" {
			nick = ids[i]
		}
		out[i] = domain.QueueEntry{
			ClassCode:  classCode,
			StudentID:  ids[i],
			Nickname:   nick,
			EnqueuedAt: time.UnixMilli(int64(m.Score)).UTC(),
		}
	}
	return out, nil
}

func (q *Queue) ClaimPair(ctx context.Context, classCode string) ([]domain.QueueEntry, bool, error) {
	flat, err := claimScript.Run(ctx, q.client, []string{q.key(classCode), q.nickKey(classCode)}).StringSlice()
	if err != nil {
		return nil, false, fmt.Errorf("claim pair: %w", err)
	}
	if len(flat) < 6 {
		return nil, false, nil
	}
	pair := make([]domain.QueueEntry, 0, 2)
	for i := 0; i+2 < len(flat); i += 3 {
		millis, err := strconv.ParseFloat(flat[i+1], 64)
		if err != nil {
			return nil, false, fmt.Errorf("claim pair: bad score %q: %w", flat[i+1], err)
		}
		pair = append(pair, domain.QueueEntry{
			ClassCode:  classCode,
			StudentID:  flat[i],
			EnqueuedAt: time.UnixMilli(int64(millis)).UTC(),
			Nickname:   flat[i+2],
		})
	}
	return pair, true, nil
}

// Restore re-adds claimed entries unless the student already queued again.
func (q *Queue) Restore(ctx context.Context, entries []domain.QueueEntry) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			pipe.ZAddNX(ctx, q.key(e.ClassCode), redis.Z{
				Score:  float64(e.EnqueuedAt.UnixMilli()),
				Member: e.StudentID,
			})
			pipe.HSetNX(ctx, q.nickKey(e.ClassCode), e.StudentID, e.Nickname)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("restore queue: %w", err)
	}
	return nil
}

func (q *Queue) key(classCode string) string {
	return "battle:queue:" + classCode
}

func (q *Queue) nickKey(classCode string) string {
	return "battle:queue:" + classCode + ":nick"
}
