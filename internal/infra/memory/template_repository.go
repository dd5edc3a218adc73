package memory

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"shule-quiz-service/internal/domain"
	"shule-quiz-service/internal/quiz"
)

// TemplateLoader fetches templates from a backing store (e.g., Postgres).
type TemplateLoader interface {
	FindTemplate(ctx context.Context, filter quiz.TemplateFilter) (domain.QuizTemplate, error)
}

// TemplateCache caches template lookups with TTL to avoid repeated DB hits.
type TemplateCache struct {
	loader TemplateLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedTemplate
}

type cachedTemplate struct {
	template  domain.QuizTemplate
	expiresAt time.Time
}

var _ quiz.TemplateRepository = (*TemplateCache)(nil)

func NewTemplateCache(loader TemplateLoader, ttl time.Duration) *TemplateCache {
	return &TemplateCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedTemplate),
	}
}

func (r *TemplateCache) FindTemplate(ctx context.Context, filter quiz.TemplateFilter) (domain.QuizTemplate, error) {
	key := FilterKey(filter)
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.template, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.template, nil
		}
		r.mu.RUnlock()

		template, err := r.loader.FindTemplate(ctx, filter)
		if err != nil {
			return domain.QuizTemplate{}, err
		}

		r.mu.Lock()
		r.cache[key] = cachedTemplate{
			template:  template,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return template, nil
	})
	if err != nil {
		return domain.QuizTemplate{}, err
	}
	return result.(domain.QuizTemplate), nil
}

func (r *TemplateCache) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// FilterKey builds a stable cache key for a template lookup.
func FilterKey(f quiz.TemplateFilter) string {
	term := ""
	if f.Term > 0 {
		term = strconv.Itoa(f.Term)
	}
	return strings.ToLower(strings.Join([]string{
		f.Curriculum, f.Level, f.Subject, string(f.QuizType), f.TopicID, term,
	}, ":"))
}

// StaticTemplates is a loader backed by a fixed template list (useful for
// tests/demos and the no-Postgres dev mode).
type StaticTemplates struct {
	templates []domain.QuizTemplate
}

var _ quiz.TemplateRepository = (*StaticTemplates)(nil)

func NewStaticTemplates(templates []domain.QuizTemplate) *StaticTemplates {
	return &StaticTemplates{templates: templates}
}

func (l *StaticTemplates) FindTemplate(_ context.Context, filter quiz.TemplateFilter) (domain.QuizTemplate, error) {
	for _, t := range l.templates {
		if matches(t, filter) {
			return t, nil
		}
	}
	return domain.QuizTemplate{}, domain.ErrTemplateNotFound
}

func matches(t domain.QuizTemplate, f quiz.TemplateFilter) bool {
	if !strings.EqualFold(t.Curriculum, f.Curriculum) ||
		!strings.EqualFold(t.Level, f.Level) ||
		!strings.EqualFold(t.Subject, f.Subject) ||
		t.QuizType != f.QuizType {
		return false
	}
	if f.QuizType == domain.QuizTypeTopical && t.TopicID != f.TopicID {
		return false
	}
	if f.QuizType == domain.QuizTypeTerm && t.Term != f.Term {
		return false
	}
	return true
}
