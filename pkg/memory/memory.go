// Package memory implements the three-layer session memory on Redis:
// a per-session working queue of recent turns, per-day summaries, and a
// permanent core hash of user preferences. It also holds short-lived
// pending actions and per-session counters.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	workingTTL = 24 * time.Hour
	dailyTTL   = 7 * 24 * time.Hour
	pendingTTL = 300 * time.Second
	summaryTTL = 24 * time.Hour

	coreKey = "core_memory"
)

// Turn is one stored conversation turn.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	TS      int64  `json:"ts"`
}

// Service wraps the Redis client.
type Service struct {
	rdb *redis.Client

	// CompressionThreshold triggers compaction of the working queue;
	// CompressionKeep turns survive it.
	CompressionThreshold int
	CompressionKeep      int
}

func NewService(addr string, db int) *Service {
	return &Service{
		rdb: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		CompressionThreshold: 15,
		CompressionKeep:      4,
	}
}

// Ping verifies connectivity at startup.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach memory store: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	return s.rdb.Close()
}

func workingKey(session string) string  { return "working_memory:" + session }
func summaryKey(session string) string  { return "conversation_summary:" + session }
func pendingKey(session string) string  { return "pending_action:" + session }
func countKey(session string) string    { return "msg_count:" + session }
func activeKey(session string) string   { return "active_project:" + session }
func dailyKey(date string) string       { return "daily_summary:" + date }

// AppendWorking appends a turn and refreshes the 24h TTL.
func (s *Service) AppendWorking(ctx context.Context, session, role, content string) error {
	turn, err := json.Marshal(Turn{Role: role, Content: content, TS: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.RPush(ctx, workingKey(session), turn)
	pipe.Expire(ctx, workingKey(session), workingTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append working memory: %w", err)
	}
	return nil
}

// GetWorking returns the last n turns, oldest first.
func (s *Service) GetWorking(ctx context.Context, session string, n int) ([]Turn, error) {
	raw, err := s.rdb.LRange(ctx, workingKey(session), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read working memory: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, r := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// WorkingLen returns the working queue length.
func (s *Service) WorkingLen(ctx context.Context, session string) (int, error) {
	n, err := s.rdb.LLen(ctx, workingKey(session)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read working memory length: %w", err)
	}
	return int(n), nil
}

// CompressWorking removes everything but the last CompressionKeep turns
// and returns the removed turns for summarisation. Returns nil when the
// queue is below the threshold.
func (s *Service) CompressWorking(ctx context.Context, session string) ([]Turn, error) {
	key := workingKey(session)

	n, err := s.rdb.LLen(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read working memory length: %w", err)
	}
	if int(n) <= s.CompressionThreshold {
		return nil, nil
	}

	cut := int(n) - s.CompressionKeep
	raw, err := s.rdb.LRange(ctx, key, 0, int64(cut-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read working memory: %w", err)
	}

	if err := s.rdb.LTrim(ctx, key, int64(cut), -1).Err(); err != nil {
		return nil, fmt.Errorf("failed to trim working memory: %w", err)
	}

	removed := make([]Turn, 0, len(raw))
	for _, r := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			continue
		}
		removed = append(removed, t)
	}
	return removed, nil
}

// SetConversationSummary stores the compressed-history summary.
func (s *Service) SetConversationSummary(ctx context.Context, session, summary string) error {
	if err := s.rdb.Set(ctx, summaryKey(session), summary, summaryTTL).Err(); err != nil {
		return fmt.Errorf("failed to store conversation summary: %w", err)
	}
	return nil
}

// GetConversationSummary returns the compressed-history summary, empty
// when absent.
func (s *Service) GetConversationSummary(ctx context.Context, session string) (string, error) {
	v, err := s.rdb.Get(ctx, summaryKey(session)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read conversation summary: %w", err)
	}
	return v, nil
}

// SetDaily stores the summary for a YYYY-MM-DD date with a 7 day TTL.
func (s *Service) SetDaily(ctx context.Context, date, summary string) error {
	if err := s.rdb.Set(ctx, dailyKey(date), summary, dailyTTL).Err(); err != nil {
		return fmt.Errorf("failed to store daily summary: %w", err)
	}
	return nil
}

// GetDaily returns the summary for a date, empty when absent.
func (s *Service) GetDaily(ctx context.Context, date string) (string, error) {
	v, err := s.rdb.Get(ctx, dailyKey(date)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read daily summary: %w", err)
	}
	return v, nil
}

// SetCore writes one core-memory field. Core memory is permanent.
func (s *Service) SetCore(ctx context.Context, field, value string) error {
	if err := s.rdb.HSet(ctx, coreKey, field, value).Err(); err != nil {
		return fmt.Errorf("failed to write core memory: %w", err)
	}
	return nil
}

// GetCore returns the whole core-memory hash.
func (s *Service) GetCore(ctx context.Context) (map[string]string, error) {
	m, err := s.rdb.HGetAll(ctx, coreKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read core memory: %w", err)
	}
	return m, nil
}

// DeleteCore removes one core-memory field.
func (s *Service) DeleteCore(ctx context.Context, field string) error {
	if err := s.rdb.HDel(ctx, coreKey, field).Err(); err != nil {
		return fmt.Errorf("failed to delete core memory field: %w", err)
	}
	return nil
}

// SetPending stores a pending confirmation action as JSON with a 300s
// TTL. Expiry is resolved lazily by the TTL itself.
func (s *Service) SetPending(ctx context.Context, session string, action any) error {
	blob, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("failed to marshal pending action: %w", err)
	}
	if err := s.rdb.Set(ctx, pendingKey(session), blob, pendingTTL).Err(); err != nil {
		return fmt.Errorf("failed to store pending action: %w", err)
	}
	return nil
}

// GetPending reads the pending action into out. Returns false when none
// is pending.
func (s *Service) GetPending(ctx context.Context, session string, out any) (bool, error) {
	blob, err := s.rdb.Get(ctx, pendingKey(session)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read pending action: %w", err)
	}
	if err := json.Unmarshal([]byte(blob), out); err != nil {
		return false, fmt.Errorf("failed to unmarshal pending action: %w", err)
	}
	return true, nil
}

// ClearPending drops the pending action.
func (s *Service) ClearPending(ctx context.Context, session string) error {
	if err := s.rdb.Del(ctx, pendingKey(session)).Err(); err != nil {
		return fmt.Errorf("failed to clear pending action: %w", err)
	}
	return nil
}

// IncrMessageCount bumps and returns the per-session message counter.
func (s *Service) IncrMessageCount(ctx context.Context, session string) (int64, error) {
	n, err := s.rdb.Incr(ctx, countKey(session)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment message count: %w", err)
	}
	return n, nil
}

// SetActiveProject records the project the session is working in.
func (s *Service) SetActiveProject(ctx context.Context, session, project string) error {
	if err := s.rdb.Set(ctx, activeKey(session), project, 0).Err(); err != nil {
		return fmt.Errorf("failed to set active project: %w", err)
	}
	return nil
}

// GetActiveProject returns the session's active project, empty if none.
func (s *Service) GetActiveProject(ctx context.Context, session string) (string, error) {
	v, err := s.rdb.Get(ctx, activeKey(session)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read active project: %w", err)
	}
	return v, nil
}

// ClearActiveProject drops the session's active project.
func (s *Service) ClearActiveProject(ctx context.Context, session string) error {
	if err := s.rdb.Del(ctx, activeKey(session)).Err(); err != nil {
		return fmt.Errorf("failed to clear active project: %w", err)
	}
	return nil
}
