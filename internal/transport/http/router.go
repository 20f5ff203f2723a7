package httptransport

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"ionia-ingest/internal/auth"
	"ionia-ingest/internal/dedupe"
	"ionia-ingest/internal/session"
)

// NewRouter wires the full HTTP surface. The bearer gate covers everything
// except the public allow-list, so every handler below it can trust the
// identity on the request context.
func NewRouter(keyring *auth.Keyring, tracker *session.Tracker, registry *dedupe.Registry, store RowStore) *chi.Mux {
	h := NewHandlers(keyring, tracker, registry, store)

	publicPaths := map[string]struct{}{
		"/activate": {},
		"/healthz":  {},
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(APILogMiddleware())
	r.Use(BodyCaptureMiddleware(0))
	r.Use(BearerAuthMiddleware(keyring, publicPaths))

	r.Get("/healthz", h.Health())
	r.Post("/activate", h.Activate())

	r.Post("/client/heartbeat", h.Heartbeat())

	r.Route("/events", func(r chi.Router) {
		r.Post("/champ_select_start", h.ChampSelectStart())
		r.Post("/draft_complete", h.DraftComplete())
		r.Post("/game_start", h.GameStart())
		r.Post("/game_finished", h.GameFinished())
		r.Post("/stream_ready", h.StreamReady())
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/teams", h.CreateTeam())
		r.Post("/players", h.CreatePlayer())
	})

	return r
}

// LogRoutes prints the registered route table at startup.
func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
