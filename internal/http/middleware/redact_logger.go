package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders are masked in addition to Authorization, Cookie and
	// Set-Cookie. Case-insensitive.
	MaskHeaders []string
}

// Patterns scrubbed from logs: platform snowflakes (user, community and
// channel ids), 64-char hex tokens such as anonymous ticket keys, bearer
// credentials and e-mail addresses.
var (
	snowflakeRE = regexp.MustCompile(`\b\d{17,20}\b`)
	tokenRE     = regexp.MustCompile(`(?i)\b[0-9a-f]{64}\b`)
	bearerRE    = regexp.MustCompile(`(?i)\bbearer\s+\S+`)
	emailRE     = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
)

// redact scrubs identifiers from a log value. Tokens go first so their
// digit runs are not taken for snowflakes.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = bearerRE.ReplaceAllString(s, "Bearer [REDACTED]")
	s = tokenRE.ReplaceAllString(s, "[REDACTED:token]")
	s = snowflakeRE.ReplaceAllString(s, "[REDACTED:id]")
	return emailRE.ReplaceAllString(s, "[REDACTED:email]")
}

// RedactingLogger emits one access log line per request with ids, tokens
// and e-mail addresses scrubbed from the path, query and headers, and
// attaches a request-scoped logger for handlers (see LoggerFrom). Bodies are
// never logged. Level follows the status: error for 5xx, warn for 4xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		// route templates carry no ids; raw paths (404s) might
		path := c.FullPath()
		if path == "" {
			path = redact(c.Request.URL.Path)
		}
		rid := asString(c.Value(requestIDKey))

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = redact(strings.Join(vv, ", "))
		}

		lg := log.With().
			Str("request_id", rid).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &lg)

		c.Next()

		status := c.Writer.Status()
		ev := lg.Info()
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = lg.Error()
		case status >= 400:
			ev = lg.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", redact(c.Errors.String()))
		}
		ev.
			Str("query", truncate(redact(c.Request.URL.RawQuery), maxQueryLogLength)).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
