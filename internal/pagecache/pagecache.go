// Package pagecache memoizes rendered pages for a fixed window.
//
// Cached bytes are served verbatim until the entry expires or Clear is
// called; writes to the underlying data never invalidate entries.
package pagecache

import (
	"context"
	"strings"
	"time"

	"yatube/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
)

// DefaultPrefix namespaces home feed entries.
const DefaultPrefix = "index_page"

// StatusHeader reports hit, miss or unreachable on every cached route.
const StatusHeader = "X-Cache"

// ViewerFunc identifies who a page was rendered for, e.g. "anon" or a user id.
type ViewerFunc func(c *fiber.Ctx) string

// Cache owns the storage and the window shared by all cached routes.
type Cache struct {
	storage Storage
	prefix  string
	ttl     time.Duration
}

// New returns a cache holding entries for ttl.
func New(storage Storage, prefix string, ttl time.Duration) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Cache{storage: storage, prefix: prefix, ttl: ttl}
}

// Prefix is the namespace entries are stored under.
func (pc *Cache) Prefix() string {
	return pc.prefix
}

// TTL is the validity window of an entry.
func (pc *Cache) TTL() time.Duration {
	return pc.ttl
}

// Storage exposes the backing store.
func (pc *Cache) Storage() Storage {
	return pc.storage
}

// Key builds "<viewer>:<path>?<query>"; the storage adds the prefix.
func Key(viewer, path, query string) string {
	var b strings.Builder
	b.WriteString(viewer)
	b.WriteByte(':')
	b.WriteString(path)
	b.WriteByte('?')
	b.WriteString(query)
	return b.String()
}

// Middleware caches successful GET responses of the wrapped route.
func (pc *Cache) Middleware(viewer ViewerFunc) fiber.Handler {
	h := cache.New(cache.Config{
		Expiration:   pc.ttl,
		CacheHeader:  StatusHeader,
		CacheControl: false,
		Storage:      pc.storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			who := "anon"
			if viewer != nil {
				if v := viewer(c); v != "" {
					who = v
				}
			}
			return Key(who, c.Path(), string(c.Request().URI().QueryString()))
		},
	})

	return func(c *fiber.Ctx) error {
		err := h(c)
		if outcome := strings.ToLower(c.GetRespHeader(StatusHeader)); outcome != "" {
			observability.PageCacheRequests.WithLabelValues(outcome).Inc()
		}
		return err
	}
}

// Clear drops every cached page immediately.
func (pc *Cache) Clear(ctx context.Context) error {
	if err := pc.storage.Clear(ctx); err != nil {
		return err
	}
	observability.PageCacheClears.Inc()
	return nil
}
