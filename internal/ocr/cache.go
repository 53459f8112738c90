package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ironsheep/menu-lens/internal/region"
)

// Store holds recognition payloads by key. Stored payloads are shared and
// must not be modified.
type Store interface {
	Get(ctx context.Context, key string) (*region.RawResponse, bool, error)
	Set(ctx context.Context, key string, resp *region.RawResponse) error
}

// CacheKey derives the store key for image data under a namespace, usually
// the backend name.
func CacheKey(namespace string, data []byte) string {
	sum := sha256.Sum256(data)
	return namespace + ":" + hex.EncodeToString(sum[:])
}

// MemoryStore is an in-process LRU store.
type MemoryStore struct {
	entries *lru.Cache[string, *region.RawResponse]
}

// NewMemoryStore creates a store holding at most size payloads.
func NewMemoryStore(size int) *MemoryStore {
	if size <= 0 {
		size = 128
	}
	c, _ := lru.New[string, *region.RawResponse](size)
	return &MemoryStore{entries: c}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*region.RawResponse, bool, error) {
	resp, ok := m.entries.Get(key)
	return resp, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, resp *region.RawResponse) error {
	m.entries.Add(key, resp)
	return nil
}

// Len returns the number of stored payloads.
func (m *MemoryStore) Len() int { return m.entries.Len() }

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// RedisStore keeps payloads as JSON in Redis so several processes share results.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	tracer trace.Tracer
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreFromClient(rdb, opts.TTL, opts.KeyPrefix), nil
}

// NewRedisStoreFromClient wraps an existing client. A ttl of zero keeps entries forever.
func NewRedisStoreFromClient(client redis.Cmdable, ttl time.Duration, prefix string) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		prefix: prefix,
		tracer: otel.Tracer("menu-lens/ocr"),
	}
}

func (r *RedisStore) Get(ctx context.Context, key string) (*region.RawResponse, bool, error) {
	ctx, span := r.tracer.Start(ctx, "redis_store.get")
	defer span.End()

	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, false, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("failed to read cached recognition: %w", err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))

	resp, err := region.Decode(data)
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	return resp, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, resp *region.RawResponse) error {
	ctx, span := r.tracer.Start(ctx, "redis_store.set")
	defer span.End()

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode recognition: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+key, data, r.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to cache recognition: %w", err)
	}
	return nil
}

// CachingRecognizer memoizes another recognizer. Store failures are logged
// and never fail a recognition.
type CachingRecognizer struct {
	next      Recognizer
	store     Store
	namespace string
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewCachingRecognizer wraps next. A nil logger discards store errors.
func NewCachingRecognizer(next Recognizer, store Store, namespace string, logger *slog.Logger) *CachingRecognizer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CachingRecognizer{
		next:      next,
		store:     store,
		namespace: namespace,
		logger:    logger,
		tracer:    otel.Tracer("menu-lens/ocr"),
	}
}

func (c *CachingRecognizer) Recognize(ctx context.Context, data []byte) (*region.RawResponse, error) {
	ctx, span := c.tracer.Start(ctx, "recognize.cached")
	defer span.End()
	span.SetAttributes(attribute.String("cache.namespace", c.namespace))

	key := CacheKey(c.namespace, data)

	resp, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("recognition cache read failed", "error", err)
	} else if ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		c.logger.Debug("recognition cache hit", "key", key)
		return resp, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	resp, err = c.next.Recognize(ctx, data)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := c.store.Set(ctx, key, resp); err != nil {
		c.logger.Warn("recognition cache write failed", "error", err)
	}
	return resp, nil
}
