package conversation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/config"
	"github.com/spec-kit/cobranza-service/internal/domain"
)

const historyKeyPrefix = "conversation:history:"

// HistoryStore keeps a bounded per-identity window of recent turns. History
// is advisory: a store failure degrades to an empty window, it never fails
// the request.
type HistoryStore interface {
	Append(ctx context.Context, identity string, turn domain.Turn)
	Window(ctx context.Context, identity string) []domain.Turn
}

type redisHistoryStore struct {
	client *redis.Client
	turns  int
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisHistoryStore builds a HistoryStore over the shared Redis client.
func NewRedisHistoryStore(client *redis.Client, cfg config.ConversationConfig, logger *zap.Logger) HistoryStore {
	turns := cfg.HistoryTurns
	if turns <= 0 {
		turns = 5
	}
	return &redisHistoryStore{
		client: client,
		turns:  turns,
		ttl:    cfg.HistoryTTL(),
		logger: logger,
	}
}

func (s *redisHistoryStore) Append(ctx context.Context, identity string, turn domain.Turn) {
	raw, err := json.Marshal(turn)
	if err != nil {
		s.logger.Warn("history encode failed", zap.Error(err))
		return
	}
	key := historyKeyPrefix + identity
	// A turn is one user message plus one reply, so the list keeps twice the
	// configured turn count.
	entries := int64(s.turns * 2)

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, -entries, -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("history append failed", zap.String("identity", identity), zap.Error(err))
	}
}

func (s *redisHistoryStore) Window(ctx context.Context, identity string) []domain.Turn {
	raw, err := s.client.LRange(ctx, historyKeyPrefix+identity, 0, -1).Result()
	if err != nil {
		s.logger.Warn("history read failed", zap.String("identity", identity), zap.Error(err))
		return nil
	}
	turns := make([]domain.Turn, 0, len(raw))
	for _, entry := range raw {
		var turn domain.Turn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			continue
		}
		turns = append(turns, turn)
	}
	return turns
}
