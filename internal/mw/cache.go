package mw

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"github.com/Lingges1210/tutorlink-sub001/internal/logging"
)

type cachedResponse struct {
	status      int
	contentType string
	etag        string
	body        []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache keeps successful GET bodies of routes whose output does not
// depend on the caller, such as the subject catalogue. Keys carry a
// generation, so a response computed before Invalidate is never served
// after it.
type ResponseCache struct {
	store      *cache.Cache
	ttl        time.Duration
	generation atomic.Uint64
}

// NewResponseCache creates a cache whose entries live for ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Invalidate drops every cached response. Safe on a nil cache.
func (rc *ResponseCache) Invalidate() {
	if rc == nil {
		return
	}
	gen := rc.generation.Add(1)
	rc.store.Flush()
	logging.Debug().Uint64("generation", gen).Msg("response cache invalidated")
}

// key ignores query parameter order.
func (rc *ResponseCache) key(r *http.Request, gen uint64) string {
	return fmt.Sprintf("%d|%s?%s", gen, r.URL.Path, r.URL.Query().Encode())
}

// Middleware serves hits from memory with an ETag and answers a matching
// If-None-Match with 304.
func (rc *ResponseCache) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		gen := rc.generation.Load()
		key := rc.key(c.Request, gen)
		if v, found := rc.store.Get(key); found {
			cached := v.(cachedResponse)
			c.Header("ETag", cached.etag)
			c.Header("X-Cache", "HIT")
			if c.GetHeader("If-None-Match") == cached.etag {
				c.AbortWithStatus(http.StatusNotModified)
				return
			}
			c.Data(cached.status, cached.contentType, cached.body)
			c.Abort()
			return
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw
		c.Next()

		if blw.Status() < 200 || blw.Status() >= 300 {
			return
		}
		body := blw.body.Bytes()
		rc.store.Set(key, cachedResponse{
			status:      blw.Status(),
			contentType: blw.Header().Get("Content-Type"),
			etag:        fmt.Sprintf(`W/"%d-%08x"`, gen, crc32.ChecksumIEEE(body)),
			body:        body,
		}, rc.ttl)
	}
}
