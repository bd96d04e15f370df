package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/Guilhem-Bonnet/screencraft/internal/app"
	"github.com/Guilhem-Bonnet/screencraft/internal/httpjson"
	"github.com/Guilhem-Bonnet/screencraft/internal/metrics"
	"github.com/Guilhem-Bonnet/screencraft/internal/ports"
)

type Server struct {
	logger   zerolog.Logger
	screens  *app.HomeScreenService
	items    *app.ContentItemService
	episodes *app.EpisodeService
	bus      ports.EventBus
	// limiter est optionnel (nil = pas de limitation).
	limiter *RateLimiter
}

func NewServer(logger zerolog.Logger, screens *app.HomeScreenService, items *app.ContentItemService, episodes *app.EpisodeService, bus ports.EventBus) *Server {
	return &Server{logger: logger, screens: screens, items: items, episodes: episodes, bus: bus}
}

// WithRateLimiter active la limitation par IP sur les routes de l'API.
func (s *Server) WithRateLimiter(rl *RateLimiter) *Server {
	s.limiter = rl
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))
	r.Use(metrics.InstrumentHandler)

	// ops: hors timeout (SSE) et hors rate limit
	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Get("/events", s.handleEvents)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(defaultRequestTimeout))
		r.Use(s.limiter.Handler)

		r.Get("/openapi.json", s.handleOpenAPI)
		if s.screens != nil {
			NewHomeScreensHandler(s.screens).Routes(r)
		}
		if s.items != nil {
			NewContentItemsHandler(s.items).Routes(r)
		}
		if s.episodes != nil {
			NewEpisodesHandler(s.episodes).Routes(r)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpjson.WriteError(w, http.StatusNotFound, "Cannot "+r.Method+" "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpjson.WriteError(w, http.StatusMethodNotAllowed, "")
	})

	return r
}
