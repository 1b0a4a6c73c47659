// Package httpapi exposes the filevault services as a JSON REST API with
// multipart uploads, archive downloads and a server-sent event stream.
package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/dmitrijs2005/filevault/internal/server/events"
	"github.com/dmitrijs2005/filevault/internal/server/health"
	"github.com/dmitrijs2005/filevault/internal/server/metrics"
	"github.com/dmitrijs2005/filevault/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps carries everything the router serves. Gatherer may be nil to leave
// /metrics unregistered.
type Deps struct {
	Users          *services.UserService
	Folders        *services.FolderService
	Files          *services.FileService
	Events         *events.Broker
	Health         *health.Checker
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Log            logging.Logger
	SecretKey      string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	// SecureCookies marks the token cookie Secure.
	SecureCookies bool
}

type handler struct {
	users          *services.UserService
	folders        *services.FolderService
	files          *services.FileService
	broker         *events.Broker
	checker        *health.Checker
	log            logging.Logger
	maxUploadBytes int64
	secureCookies  bool
}

// NewRouter builds the chi router.
//
// Routes:
//   - GET /health, GET /health/ready, GET /metrics
//   - POST /api/register, /api/login, /api/refresh
//   - POST /api/logout, GET|DELETE /api/user
//   - /api/folders/* and /api/files/* (see below)
//   - GET /api/events - server-sent change notifications
func NewRouter(d Deps) http.Handler {
	h := &handler{
		users:          d.Users,
		folders:        d.Folders,
		files:          d.Files,
		broker:         d.Events,
		checker:        d.Health,
		log:            d.Log.With("module", "httpapi"),
		maxUploadBytes: d.MaxUploadBytes,
		secureCookies:  d.SecureCookies,
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log, d.Metrics))
	r.Use(middleware.Recoverer)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.liveness)
		r.Get("/ready", h.readiness)
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		// Short JSON calls.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))

			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Post("/refresh", h.refresh)

			r.Group(func(r chi.Router) {
				r.Use(requireUser([]byte(d.SecretKey)))

				r.Post("/logout", h.logout)
				r.Get("/user", h.me)
				r.Delete("/user", h.deleteAccount)

				r.Post("/folders", h.createFolder)
				r.Get("/folders/{id}", h.listFolder)
				r.Get("/folders/{id}/path", h.folderPath)
				r.Delete("/folders/{id}", h.deleteFolder)
				r.Post("/folders/{id}/privacy/{privacy}", h.setFolderPrivacy)

				r.Get("/files", h.listRootFiles)
				r.Get("/files/{id}", h.getFile)
				r.Get("/files/{id}/preview", h.previewFile)
				r.Delete("/files/{id}", h.deleteFile)
				r.Post("/files/{id}/privacy/{privacy}", h.setFilePrivacy)
			})
		})

		// Streaming calls run as long as the transfer takes.
		r.Group(func(r chi.Router) {
			r.Use(requireUser([]byte(d.SecretKey)))

			r.Post("/folders/{id}/upload", h.uploadFile)
			r.Post("/folders/{id}/upload-tree", h.uploadTree)
			r.Get("/folders/{id}/download", h.downloadFolder)
			r.Get("/files/{id}/download", h.downloadFile)
			r.Get("/events", h.events)
		})
	})

	return r
}

// privacyParam reads the {privacy} path segment: "1" means public,
// anything else private.
func privacyParam(r *http.Request) (private bool) {
	return chi.URLParam(r, "privacy") != "1"
}
