package embedder

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL is how long shared embeddings live
const DefaultRedisTTL = 7 * 24 * time.Hour

// RedisCache stores embeddings in Redis under {prefix}:{hash}
type RedisCache struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	provider string
	model    string
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, addr, password string, db int, provider, model string, ttl time.Duration) (*RedisCache, error) {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisCache{
		client:   client,
		prefix:   "ragbench:emb:" + provider + ":" + model,
		ttl:      ttl,
		provider: provider,
		model:    model,
	}, nil
}

func (r *RedisCache) key(hash string) string {
	return r.prefix + ":" + hash
}

// Get loads an embedding; any Redis error is treated as a miss
func (r *RedisCache) Get(ctx context.Context, hash string) (*Embedding, bool) {
	data, err := r.client.Get(ctx, r.key(hash)).Bytes()
	if err != nil {
		return nil, false
	}
	vec, err := decodeVector(data)
	if err != nil {
		return nil, false
	}
	return &Embedding{
		Vector:    vec,
		Dimension: len(vec),
		Provider:  r.provider,
		Model:     r.model,
		Hash:      hash,
	}, true
}

// Set stores an embedding; write failures are ignored
func (r *RedisCache) Set(ctx context.Context, hash string, emb *Embedding) {
	_ = r.client.Set(ctx, r.key(hash), encodeVector(emb.Vector), r.ttl).Err()
}

// Close closes the client
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, errors.New("invalid vector encoding")
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
