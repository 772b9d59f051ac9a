package http

import (
	"net/http"
	"time"

	"debate-lab-service/internal/app"
	"debate-lab-service/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RateLimit bounds /api/debate/turn per client IP.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Options wires the use cases into the router. With TrustProxy set the client
// IP comes from forwarding headers; otherwise the rate limiter keys on the TCP
// peer address and those headers are ignored.
type Options struct {
	Classes    *app.ClassService
	Battles    *app.BattleService
	Eval       *app.EvalService
	Auth       AuthConfig
	RateLimit  RateLimit
	TrustProxy bool
}

// API holds the HTTP handlers for every route.
type API struct {
	classes *app.ClassService
	battles *app.BattleService
	eval    *app.EvalService
	ws      *WSHandler
}

// NewRouter builds the chi router serving the JSON API, the battle websocket,
// health and metrics.
func NewRouter(opts Options) http.Handler {
	api := &API{
		classes: opts.Classes,
		battles: opts.Battles,
		eval:    opts.Eval,
		ws:      NewWSHandler(opts.Battles),
	}
	if opts.RateLimit.Requests <= 0 {
		opts.RateLimit.Requests = 20
	}
	if opts.RateLimit.Window <= 0 {
		opts.RateLimit.Window = time.Minute
	}

	r := chi.NewRouter()
	if opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestID)
	r.Use(instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/battle/{id}", api.ws.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(authenticate(opts.Auth))

		r.Route("/classes", func(r chi.Router) {
			r.With(requireRole(domain.RoleTeacher)).Post("/", api.createClass)
			r.Get("/{code}", api.getClass)
			r.With(requireRole(domain.RoleStudent)).Post("/{code}/join", api.joinClass)
			r.With(requireRole(domain.RoleTeacher)).Put("/{code}/topic", api.setTopic)
			r.Get("/{code}/ranking", api.ranking)
		})

		r.Route("/battle", func(r chi.Router) {
			r.Post("/queue", api.enqueue)
			r.Delete("/queue", api.dequeue)
			r.Post("/match", api.match)
			r.Post("/round", api.submitRound)
			r.Get("/{id}", api.getBattle)
		})

		r.Post("/eval/score", api.score)
		r.Post("/report/generate", api.report)
		r.Post("/portfolio/generate", api.portfolio)
		r.With(httprate.Limit(
			opts.RateLimit.Requests,
			opts.RateLimit.Window,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
			}),
		)).Post("/debate/turn", api.debateTurn)
	})

	return r
}
