package voters

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/EmpoweredVote/ward-backend/internal/config"
	"github.com/EmpoweredVote/ward-backend/internal/middleware"
)

// Deps wires the voters feature.
type Deps struct {
	Store    Store
	Matcher  *Matcher
	Importer *Importer
	Admins   middleware.AdminFetcher
	Config   config.Config
	Log      *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	h := &Handlers{matcher: d.Matcher, importer: d.Importer, store: d.Store, log: d.Log}
	admin := middleware.AdminMiddleware(d.Admins, d.Config.AdminPhones, d.Config.MaxUploadBytes())

	r.With(middleware.RateLimit(d.Config.RateLimit.RPS, d.Config.RateLimit.Burst)).
		Post("/voter-verify", h.VerifyHandler)
	r.With(admin).Get("/voter-verify", h.SearchHandler)

	r.Route("/admin", func(r chi.Router) {
		r.Use(admin)
		r.Post("/voter-import", h.ImportHandler)
		r.Post("/upload-voter-list", h.ImportHandler)
		r.Get("/voter-imports", h.ImportsHandler)
		r.Get("/voters/stats", h.StatsHandler)
	})

	return r
}
