package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/cablequotes-backend/api/responses"
	"github.com/angelmondragon/cablequotes-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
	"github.com/angelmondragon/cablequotes-backend/pkg/logger"
)

// Login bodies are tiny; anything larger is not worth buffering to find the account.
const maxLoginBody = 4 << 10

type windowCounter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// LoginThrottle caps login attempts per client IP and per account within a fixed
// window. The account is the lowercased "login" field of the JSON body; the body is
// handed on to the login handler untouched.
func LoginThrottle(cfg config.AuthRateLimitConfig, counter windowCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil || cfg.LoginWindow <= 0 || (cfg.LoginIPLimit <= 0 && cfg.LoginAccountLimit <= 0) {
			return next
		}
		retryAfter := strconv.Itoa(int((cfg.LoginWindow + time.Second - 1) / time.Second))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			check := func(scope string, limit int) bool {
				if limit <= 0 {
					return true
				}
				ok, attempts, err := counter.FixedWindowAllow(ctx, scope, int64(limit), cfg.LoginWindow)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "login throttle"))
					return false
				}
				if !ok {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{"scope": scope, "attempts": attempts, "limit": limit}), "login.throttled")
					}
					w.Header().Set("Retry-After", retryAfter)
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts, try again later"))
					return false
				}
				return true
			}

			if !check("login:ip:"+clientIP(r), cfg.LoginIPLimit) {
				return
			}
			if cfg.LoginAccountLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxLoginBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if account := loginAccount(body); account != "" && !check("login:account:"+account, cfg.LoginAccountLimit) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// loginAccount returns a short digest of the normalised login so usernames never land
// in redis keys.
func loginAccount(body []byte) string {
	var payload struct {
		Login string `json:"login"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	login := strings.ToLower(strings.TrimSpace(payload.Login))
	if login == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(login))
	return hex.EncodeToString(sum[:8])
}

// clientIP prefers the first X-Forwarded-For hop set by the ingress proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
