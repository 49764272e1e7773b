package providers

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/km-arc/pibox/framework/plugins"
)

// RequestID assigns every request an id, reusing X-Request-Id when present.
type RequestID struct{ plugins.Plugin }

func (*RequestID) Invoke(w http.ResponseWriter, r *http.Request, next http.Handler) {
	middleware.RequestID(next).ServeHTTP(w, r)
}

// RealIP rewrites RemoteAddr from X-Real-IP / X-Forwarded-For.
type RealIP struct{ plugins.Plugin }

func (*RealIP) Invoke(w http.ResponseWriter, r *http.Request, next http.Handler) {
	middleware.RealIP(next).ServeHTTP(w, r)
}

// RequestLogger logs one line per request through the host logger.
type RequestLogger struct {
	plugins.Plugin
	wrap func(http.Handler) http.Handler
}

// NewRequestLogger creates the logging stage.
func NewRequestLogger(l logrus.FieldLogger) *RequestLogger {
	return &RequestLogger{
		wrap: middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: l, NoColor: true}),
	}
}

func (m *RequestLogger) Invoke(w http.ResponseWriter, r *http.Request, next http.Handler) {
	m.wrap(next).ServeHTTP(w, r)
}

// Recoverer turns handler panics into 500 responses.
type Recoverer struct{ plugins.Plugin }

func (*Recoverer) Invoke(w http.ResponseWriter, r *http.Request, next http.Handler) {
	middleware.Recoverer(next).ServeHTTP(w, r)
}
