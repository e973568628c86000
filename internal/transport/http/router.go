package http

import (
	"net/http"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/metrics"
	"github.com/cwrk-planet/chat-relay/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Deps struct {
	Chat    *ChatHandler
	Members *MemberHandler
	// WS serves the chat socket; it must not sit behind response wrappers
	// that hide http.Hijacker, nor behind a request timeout.
	WS http.HandlerFunc

	CORSOrigins    []string
	RequestTimeout time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httputil.MiddlewareRequestID)

	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", httputil.HeaderRequestID},
			ExposedHeaders:   []string{httputil.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if d.WS != nil {
		r.Get("/ws/chat", d.WS)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(api chi.Router) {
		api.Use(httputil.RequestLogger)
		api.Use(metrics.Instrument)
		api.Use(middleware.Timeout(d.RequestTimeout))

		api.Route("/chat", func(rt chi.Router) {
			rt.Post("/new", d.Chat.CreateRoom)
			rt.Get("/list", d.Chat.ListRooms)

			rt.Route("/room/{roomId}", func(rr chi.Router) {
				rr.Get("/", d.Chat.GetRoom)
				rr.Delete("/", d.Chat.DeleteRoom)
				rr.Get("/messages", d.Chat.History)
				rr.Get("/members", d.Chat.OnlineMembers)
			})
		})

		api.Route("/member", func(rt chi.Router) {
			rt.Get("/check", d.Members.Check)
			rt.Post("/new", d.Members.Register)
			rt.Get("/list", d.Members.List)
			rt.Get("/list/page", d.Members.ListPage)
			rt.Get("/list/count", d.Members.PageCount)
			rt.Get("/detail/{email}", d.Members.Detail)
			rt.Put("/modify", d.Members.Modify)
			rt.Delete("/del/{email}", d.Members.Delete)
			rt.Post("/login", d.Members.Login)
		})
	})

	return r
}
