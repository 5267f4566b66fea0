package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"leadgen-pipeline/internal/config"
	"leadgen-pipeline/internal/leadgen"
	"leadgen-pipeline/internal/logging"
	"leadgen-pipeline/internal/logging/types"
)

// RedisStore persists session records in Redis with a TTL, for deployments
// running more than one server process. Grounded on the teacher's
// pkg/utils.RedisClient connection setup and JSON-blob-per-key pattern,
// repointed from conversation history at sessions.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger types.Logger
}

type redisSessionDoc struct {
	TenantID  string                  `json:"tenantId"`
	ListID    string                  `json:"listId"`
	Config    leadgen.JobConfig       `json:"config"`
	Queries   []leadgen.QuerySpec     `json:"queries"`
	Counters  leadgen.SessionCounters `json:"counters"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// NewRedisStore connects to Redis using the redis config block.
func NewRedisStore(cfg *config.Config) (*RedisStore, error) {
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Redis.Password != "" {
		opt.Password = cfg.Redis.Password
	}
	opt.DB = cfg.Redis.DB
	opt.DialTimeout = cfg.Redis.Timeout
	opt.ReadTimeout = cfg.Redis.Timeout
	opt.WriteTimeout = cfg.Redis.Timeout

	client := redis.NewClient(opt)

	ttl := cfg.SessionStore.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisStore{client: client, ttl: ttl, logger: logging.GetGlobalLogger()}, nil
}

func (s *RedisStore) key(sessionID string) string {
	return "leadgen:session:" + sessionID
}

func (s *RedisStore) Create(ctx context.Context, tenantID, listID string, cfg leadgen.JobConfig, queries []leadgen.QuerySpec) (string, error) {
	sessionID := fmt.Sprintf("%s-%d", tenantID, time.Now().UnixNano())

	doc := redisSessionDoc{
		TenantID:  tenantID,
		ListID:    listID,
		Config:    cfg,
		Queries:   queries,
		Counters:  leadgen.SessionCounters{Status: "running"},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal session doc: %w", err)
	}

	if err := s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return sessionID, nil
}

func (s *RedisStore) Update(ctx context.Context, sessionID string, counters leadgen.SessionCounters) error {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return fmt.Errorf("sessionstore: unknown session %q", sessionID)
		}
		return fmt.Errorf("get session: %w", err)
	}

	var doc redisSessionDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("unmarshal session doc: %w", err)
	}

	doc.Counters = counters
	doc.UpdatedAt = time.Now()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal session doc: %w", err)
	}
	return s.client.Set(ctx, s.key(sessionID), data, s.ttl).Err()
}

// IsHealthy pings Redis.
func (s *RedisStore) IsHealthy(ctx context.Context) bool {
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.logger.Warn("redis session store unhealthy", map[string]interface{}{"error": err.Error()})
		return false
	}
	return true
}

// Close closes the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
