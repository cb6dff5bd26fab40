package translate

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/golang/groupcache/singleflight"
	"github.com/rs/zerolog"
	"github.com/zeebo/blake3"
)

// DefaultCacheSize is the number of translations kept by NewCache when size
// is not positive.
const DefaultCacheSize = 1024

// cacheKey identifies a translation. Text is stored as a digest so long
// paragraphs do not pin memory twice.
type cacheKey struct {
	sum    [32]byte
	source string
	target string
}

func (k cacheKey) String() string {
	return hex.EncodeToString(k.sum[:]) + "|" + k.source + "|" + k.target
}

// Cache is a Translator decorator with a bounded LRU keyed by
// (text, source, target). Concurrent misses for the same key share one
// backend call; a caller whose shared call was cancelled by another caller
// retries with its own context. Failed translations are not cached.
type Cache struct {
	next  Translator
	log   zerolog.Logger
	group singleflight.Group

	mu     sync.Mutex
	lru    *lru.Cache
	hits   int
	misses int
}

// NewCache wraps next with an LRU of at most size entries.
func NewCache(next Translator, size int, log zerolog.Logger) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cache{
		next: next,
		log:  log,
		lru:  lru.New(size),
	}
}

// Name returns the wrapped backend name.
func (c *Cache) Name() string { return c.next.Name() }

// Translate returns a cached translation or asks the wrapped backend.
func (c *Cache) Translate(ctx context.Context, text string, pair LangPair) (string, error) {
	key := cacheKey{sum: blake3.Sum256([]byte(text)), source: pair.Source, target: pair.Target}

	c.mu.Lock()
	if v, ok := c.lru.Get(key); ok {
		c.hits++
		c.mu.Unlock()
		c.log.Debug().Str("pair", pair.String()).Msg("cache hit")
		return v.(string), nil
	}
	c.misses++
	c.mu.Unlock()

	for {
		// Only the caller that starts a shared call runs fn, with its own ctx.
		leader := false
		v, err := c.group.Do(key.String(), func() (any, error) {
			leader = true
			out, err := c.next.Translate(ctx, text, pair)
			if err != nil {
				return nil, err
			}
			c.mu.Lock()
			c.lru.Add(key, out)
			c.mu.Unlock()
			return out, nil
		})
		if err == nil {
			return v.(string), nil
		}
		if leader || !isContextErr(err) || ctx.Err() != nil {
			return "", err
		}
		// The caller that owned the shared call went away; try again.
		c.log.Debug().Str("pair", pair.String()).Msg("shared translation cancelled, retrying")
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Stats returns the hit and miss counters and the number of cached entries.
func (c *Cache) Stats() (hits, misses, entries int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.lru.Len()
}
