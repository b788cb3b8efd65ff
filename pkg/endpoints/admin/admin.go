package admin

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/apexreplay/apexreplay-service-go/log"
	"github.com/apexreplay/apexreplay-service-go/pkg/endpoints/utils"
	"github.com/apexreplay/apexreplay-service-go/pkg/session"
)

type (
	Option func(*AdminManager)

	// Invalidator is the part of a cache the admin endpoints need.
	Invalidator interface {
		InvalidateAll(ctx context.Context)
	}

	// AdminManager serves the maintenance endpoints.
	AdminManager struct {
		session *session.Session
		caches  []Invalidator
		l       *log.Logger
	}
)

func WithLogger(arg *log.Logger) Option {
	return func(admin *AdminManager) {
		admin.l = arg
	}
}

// WithCache registers a cache to be flushed on clear-cache requests.
func WithCache(arg Invalidator) Option {
	return func(admin *AdminManager) {
		admin.caches = append(admin.caches, arg)
	}
}

func InitAdminEndpoints(sess *session.Session, opts ...Option) *AdminManager {
	ret := &AdminManager{
		session: sess,
		l:       log.GetLogger("endpoints"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (admin *AdminManager) Mount(r chi.Router) {
	r.Get("/api/clear-cache", admin.handleClearCache)
}

func (admin *AdminManager) handleClearCache(w http.ResponseWriter, r *http.Request) {
	admin.session.Clear()
	for _, c := range admin.caches {
		c.InvalidateAll(r.Context())
	}
	admin.l.Info("caches cleared")
	utils.SendJSON(w, http.StatusOK, map[string]string{"status": "cache cleared"})
}
