package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/orderdesk/internal/api"
	"github.com/cloo-solutions/orderdesk/internal/api/handlers"
	"github.com/cloo-solutions/orderdesk/internal/api/middleware"
)

type RouterConfig struct {
	AppOrigin      string
	Tokens         middleware.TokenPublisher
	BridgeHandler  *handlers.BridgeHandler
	OrderHandler   *handlers.OrderHandler
	SearchHandler  *handlers.SearchHandler
	AdminHandler   *handlers.AdminHandler
	SessionHandler *handlers.SessionHandler
	ReportHandler  *handlers.ReportHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.Sentry)
	r.Use(middleware.AccessLog)
	r.Use(middleware.LimitBody(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The host page talks to the bridge without a bearer token.
	r.Route("/bridge", func(r chi.Router) {
		r.Post("/inbox", cfg.BridgeHandler.Inbox)
		r.Get("/outbox", cfg.BridgeHandler.Outbox)
		r.Post("/outbox", cfg.BridgeHandler.Send)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerIngest(cfg.Tokens, cfg.AppOrigin))

		r.Route("/session", func(r chi.Router) {
			r.Post("/login", cfg.SessionHandler.Login)
			r.Get("/info", cfg.SessionHandler.Info)
			r.Get("/crm", cfg.SessionHandler.GetCRM)
			r.Put("/crm", cfg.SessionHandler.SetCRM)
		})
		r.Get("/medications", cfg.SessionHandler.Medications)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", cfg.OrderHandler.List)
			r.Post("/", cfg.OrderHandler.Create)
			r.Post("/search", cfg.OrderHandler.Search)
			r.Post("/search/date", cfg.OrderHandler.SearchDate)
			r.Post("/scroll", cfg.OrderHandler.Scroll)
			r.Post("/refresh", cfg.OrderHandler.Refresh)
			r.Get("/{id}", cfg.OrderHandler.Get)
			r.Post("/{id}/refresh", cfg.OrderHandler.RefreshOrder)
			r.Post("/{id}/actions/{action}", cfg.OrderHandler.Action)
			r.Put("/{id}/medications", cfg.OrderHandler.SaveMedications)
			r.Post("/{id}/results", cfg.OrderHandler.SubmitResults)
		})

		r.Route("/search/{domain}", func(r chi.Router) {
			r.Get("/log", cfg.SearchHandler.Log)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireOwner)
				r.Get("/", cfg.SearchHandler.Get)
				r.Delete("/", cfg.SearchHandler.Release)
				r.Post("/query", cfg.SearchHandler.Query)
				r.Post("/scroll", cfg.SearchHandler.Scroll)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Route("/order-sets", func(r chi.Router) {
				r.Post("/", cfg.AdminHandler.SaveOrderSet)
				r.Post("/result-tests", cfg.AdminHandler.ResultTests)
				r.Get("/results/{hostCode}", cfg.AdminHandler.OrderResults)
				r.Get("/{id}", cfg.AdminHandler.GetOrderSet)
				r.Delete("/{id}", cfg.AdminHandler.DeleteOrderSet)
			})
			r.Get("/profiles/{id}/tests", cfg.AdminHandler.ProfileTests)

			r.Route("/med-sets", func(r chi.Router) {
				r.Post("/", cfg.AdminHandler.SaveMedSet)
				r.Get("/{id}", cfg.AdminHandler.GetMedSet)
				r.Delete("/{id}", cfg.AdminHandler.DeleteMedSet)
			})

			r.Route("/patients", func(r chi.Router) {
				r.Get("/", cfg.AdminHandler.SearchPatients)
				r.Post("/", cfg.AdminHandler.CreatePatient)
				r.Get("/{id}", cfg.AdminHandler.GetPatient)
				r.Put("/{id}", cfg.AdminHandler.UpdatePatient)
			})

			r.Route("/scheduled-orders", func(r chi.Router) {
				r.Get("/", cfg.AdminHandler.SearchScheduled)
				r.Post("/", cfg.AdminHandler.SaveScheduled)
				r.Get("/{id}", cfg.AdminHandler.GetScheduled)
				r.Delete("/{id}", cfg.AdminHandler.DeleteScheduled)
			})

			r.Get("/catalog/{kind}", cfg.AdminHandler.Catalog)
		})

		r.Post("/reports/archive", cfg.ReportHandler.Archive)
	})

	return r
}
