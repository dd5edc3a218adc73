package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"shule-quiz-service/internal/domain"
	"shule-quiz-service/internal/infra/memory"
	"shule-quiz-service/internal/quiz"
)

// TemplateLoader fetches templates from a backing store (e.g., Postgres).
type TemplateLoader interface {
	FindTemplate(ctx context.Context, filter quiz.TemplateFilter) (domain.QuizTemplate, error)
}

// TemplateCache caches whole template documents in Redis and falls back to a
// loader on cache miss. Documents are stored as:
//
//	SET quiz:template:{filterKey} {json} EX ttl
//
// Misses that reach the loader are collapsed with singleflight so a cold key
// costs one DB round trip regardless of concurrent requests.
type TemplateCache struct {
	client *redis.Client
	loader TemplateLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

var _ quiz.TemplateRepository = (*TemplateCache)(nil)

func NewTemplateCache(client *redis.Client, loader TemplateLoader, ttl time.Duration) *TemplateCache {
	return &TemplateCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *TemplateCache) FindTemplate(ctx context.Context, filter quiz.TemplateFilter) (domain.QuizTemplate, error) {
	key := r.key(filter)

	if template, ok := r.fromCache(ctx, key); ok {
		return template, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if template, ok := r.fromCache(ctx, key); ok {
			return template, nil
		}

		template, err := r.loader.FindTemplate(ctx, filter)
		if err != nil {
			return domain.QuizTemplate{}, err
		}

		if data, err := json.Marshal(template); err == nil {
			// best-effort write; a cache miss next time is acceptable
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return template, nil
	})
	if err != nil {
		return domain.QuizTemplate{}, err
	}
	return result.(domain.QuizTemplate), nil
}

func (r *TemplateCache) fromCache(ctx context.Context, key string) (domain.QuizTemplate, bool) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) || err != nil {
		return domain.QuizTemplate{}, false
	}
	var template domain.QuizTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return domain.QuizTemplate{}, false
	}
	return template, true
}

func (r *TemplateCache) key(filter quiz.TemplateFilter) string {
	return "quiz:template:" + memory.FilterKey(filter)
}

func (r *TemplateCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
