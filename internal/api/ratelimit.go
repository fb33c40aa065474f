/**
 * @description
 * Per-IP fixed-window rate-limit middleware. Counters live in an app.LimiterStore
 * so limits hold across replicas when Redis backs the store. The middleware fails
 * open: if the counter backend is unreachable the request goes through and the
 * outage is logged, because dropping all traffic on a Redis blip is worse than
 * briefly losing the limit.
 */

package api

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/globepay/payments-service/internal/app"
)

const (
	msgTooManyRequests = "Too many requests from this IP, please try again later."
	msgTooManyAuth     = "Too many authentication attempts, please try again later."
)

// clientIP extracts the caller's address. middleware.RealIP has already rewritten
// RemoteAddr from the forwarding headers when the service sits behind a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit returns middleware enforcing at most limit requests per window per IP
// within the given scope. Scope keeps the general and auth counters separate.
func RateLimit(store app.LimiterStore, scope string, limit int, window time.Duration, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("%s:%s", scope, clientIP(r))
			count, retryAfter, err := store.Increment(r.Context(), key, window)
			if err != nil {
				log.Printf("level=warn component=rate_limit msg=\"counter unavailable, allowing request\" scope=%s error=%q", scope, err)
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(limit) {
				seconds := int(retryAfter.Round(time.Second).Seconds())
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
				writeFail(w, http.StatusTooManyRequests, message, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
