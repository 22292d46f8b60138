package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("progress: batch not found")

const keyPrefix = "upload:batch:"

// Snapshot - состояние пакета загрузки для опроса клиентом
type Snapshot struct {
	BatchID   string             `json:"batch_id"`
	UserID    string             `json:"user_id"`
	Total     float64            `json:"total"`
	Files     map[string]float64 `json:"files"`
	Done      bool               `json:"done"`
	Failed    int                `json:"failed"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Store - снимки адресуются парой (пользователь, пакет): batch_id задаёт
// клиент, и чужой пакет с тем же ID не должен затирать снимок.
type Store interface {
	Save(ctx context.Context, s *Snapshot) error
	Get(ctx context.Context, userID, batchID string) (*Snapshot, error)
}

// RedisStore хранит снимки как JSON с TTL; просроченные пакеты исчезают сами
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

// NewRedisClient - как в остальных сервисах: создаём клиент и сразу пингуем
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func snapshotKey(userID, batchID string) string {
	return keyPrefix + userID + ":" + batchID
}

func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(snap.UserID, snap.BatchID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save progress %s: %w", snap.BatchID, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, userID, batchID string) (*Snapshot, error) {
	data, err := s.client.Get(ctx, snapshotKey(userID, batchID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get progress %s: %w", batchID, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode progress %s: %w", batchID, err)
	}
	return &snap, nil
}
