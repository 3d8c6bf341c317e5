package redis

import "strings"

// Every key lives under "ord:<kind>:..." so one Redis can be shared with
// other apps and a namespace can be flushed on its own.
const keyNamespace = "ord"

const (
	kindIdempotency = "idempotency"
	kindRateLimit   = "rate_limit"
	kindCache       = "cache"
	kindLock        = "lock"
)

func buildKey(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string { return buildKey(kindIdempotency, scope, id) }
func (c *Client) RateLimitKey(scope string) string       { return buildKey(kindRateLimit, scope) }

// CacheKey keys short-lived read-through caches such as restaurant settings.
func (c *Client) CacheKey(name string) string { return buildKey(kindCache, name) }

func (c *Client) LockKey(name string) string { return buildKey(kindLock, name) }
