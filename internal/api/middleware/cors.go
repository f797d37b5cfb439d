package middleware

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig defines the sandbox CORS policy: only the hosted application's
// domains (and their subdomains) ever receive CORS headers.
type CORSConfig struct {
	AllowedDomains   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns the policy for the production hosted app.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedDomains:   []string{"wavedash.gg", "wavedash.lvh.me"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORS creates the origin-reflecting middleware. Requests from any other
// origin pass through untouched — no CORS headers at all — and the browser
// enforces the rejection.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	allowed := cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return originAllowed(origin, cfg.AllowedDomains) },
		AllowMethods:     []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Accept", "Range", "Content-Type"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" || !originAllowed(origin, cfg.AllowedDomains) {
			c.Next()
			return
		}
		allowed(c)
	}
}

// originAllowed reports whether the origin's host is one of the allowed
// domains or a subdomain of one.
func originAllowed(origin string, domains []string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := u.Hostname()
	for _, domain := range domains {
		if hostMatchesDomain(host, domain) {
			return true
		}
	}
	return false
}

func hostMatchesDomain(host, domain string) bool {
	if host == domain {
		return true
	}
	if rest, ok := strings.CutSuffix(host, domain); ok {
		return strings.HasSuffix(rest, ".")
	}
	return false
}
