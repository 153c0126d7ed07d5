package llm

import (
	"container/list"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/oskarvik/kontosort/internal/classify"
	"github.com/oskarvik/kontosort/internal/metrics"
	"github.com/oskarvik/kontosort/internal/model"
)

const defaultCacheSize = 1000

// resultCache is a mutex-guarded bounded LRU of classification results. It is
// shared across sweeps within one classifier instance, never across instances.
type resultCache struct {
	entries map[string]*list.Element
	order   *list.List
	maxSize int
	mu      sync.Mutex
}

type cacheEntry struct {
	key    string
	result classify.Result
}

func newResultCache(maxSize int) *resultCache {
	if maxSize <= 0 {
		maxSize = defaultCacheSize
	}
	return &resultCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
	}
}

func (c *resultCache) get(key string) (classify.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return classify.Result{}, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*cacheEntry).result, true
}

func (c *resultCache) set(key string, result classify.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).result = result
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, result: result})
}

func (c *resultCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// CachedClassifier wraps the remote classifier with a bounded LRU keyed by
// the normalized description and the amount rounded to the nearest 10, so
// near-duplicate transactions cost one inference call instead of many.
type CachedClassifier struct {
	inner *Classifier
	cache *resultCache
}

// NewCachedClassifier creates the caching variant and pre-warms the model so
// the first real classification does not pay cold-start latency.
func NewCachedClassifier(ctx context.Context, cfg Config, client Client, categories []string, logger *slog.Logger) (*CachedClassifier, error) {
	inner, err := NewClassifier(ctx, cfg, client, categories, logger)
	if err != nil {
		return nil, err
	}

	c := &CachedClassifier{
		inner: inner,
		cache: newResultCache(defaultCacheSize),
	}

	// Warm-up failures are irrelevant; the first classification retries.
	warmCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, warmErr := client.Generate(warmCtx, "Warm up"); warmErr != nil {
		logger.Debug("llm warm-up failed", "error", warmErr)
	}

	return c, nil
}

// Name identifies the classifier in classification_method tags.
func (c *CachedClassifier) Name() string { return c.inner.Name() }

// Class reports the classifier class.
func (c *CachedClassifier) Class() model.ClassifierClass { return c.inner.Class() }

// CacheSize returns the number of cached results.
func (c *CachedClassifier) CacheSize() int { return c.cache.size() }

// Classify serves repeat lookups from the cache and delegates misses to the
// wrapped classifier. Only matched results are cached; a transient failure
// should not pin an empty answer.
func (c *CachedClassifier) Classify(ctx context.Context, txn model.Transaction) (classify.Result, error) {
	key := cacheKey(txn.Description, txn.Amount)

	if result, ok := c.cache.get(key); ok {
		metrics.CacheHits.Inc()
		return result, nil
	}

	result, err := c.inner.Classify(ctx, txn)
	if err != nil {
		return classify.Result{}, err
	}

	if result.Matched() {
		c.cache.set(key, result)
	}
	return result, nil
}

// cacheKey normalizes the description and rounds the amount to the nearest
// ten so near-duplicate transactions share an entry.
func cacheKey(description string, amount float64) string {
	normalized := strings.ToUpper(strings.TrimSpace(description))
	rounded := math.Round(amount/10) * 10
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%.0f", normalized, rounded)))
	return fmt.Sprintf("%x", sum)
}
