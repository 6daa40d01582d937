package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
	cacheNameKey    = "cache"
	elapsedKey      = "processing_time_ms"
)

// CacheTimetable names the Redis-backed timetable cache in response metadata.
const CacheTimetable = "timetable"

// WithResponseMeta attaches a metadata map to the request and stamps the handler's elapsed time on it.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
		meta := responseMeta(c)
		if _, ok := meta[elapsedKey]; !ok {
			meta[elapsedKey] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit records which cache served the response and whether it was a hit.
func SetCacheHit(c *gin.Context, cache string, hit bool) {
	meta := responseMeta(c)
	meta[cacheHitKey] = hit
	if cache != "" {
		meta[cacheNameKey] = cache
	}
}

// ExtractMeta returns the metadata collected for the request, or nil when none was attached.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, _ := storedMeta(c)
	return meta
}

func storedMeta(c *gin.Context) (map[string]interface{}, bool) {
	raw, exists := c.Get(responseMetaKey)
	if !exists {
		return nil, false
	}
	meta, ok := raw.(map[string]interface{})
	return meta, ok
}

func responseMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if meta, ok := storedMeta(c); ok {
		return meta
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
