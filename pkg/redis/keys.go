package redis

import "strings"

const namespace = "cq"

func (c *Client) RateLimitKey(scope string) string { return key("rate_limit", scope) }

func (c *Client) AccessSessionKey(accessID string) string { return key("session", "access", accessID) }

func (c *Client) LockKey(name string) string { return key("lock", name) }

func (c *Client) MarkerKey(name, period string) string { return key("sent", name, period) }

// key joins non-empty parts under the namespace.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
