package http

import (
	"net/http"

	"github.com/mauv0809/courtmatch/internal/lifecycle"
)

func NewServer(svc *lifecycle.Service, metricsHandler http.Handler) *Server {
	server := &Server{
		Service:        svc,
		MetricsHandler: metricsHandler,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// Every mutating route also needs an actor: Chain(h, paramsMiddleware, actorMiddleware).
	s.Router.Handle("GET /metrics", s.MetricsHandler)
	s.Router.Handle("GET /health", Chain(s.HealthCheckHandler(), paramsMiddleware))

	s.Router.Handle("POST /matches", Chain(s.CreateMatchHandler(), paramsMiddleware, actorMiddleware))
	s.Router.Handle("GET /matches/{id}", Chain(s.GetMatchHandler(), paramsMiddleware))
	s.Router.Handle("PATCH /matches/{id}", Chain(s.UpdateMatchHandler(), paramsMiddleware, actorMiddleware))
	s.Router.Handle("DELETE /matches/{id}", Chain(s.DeleteMatchHandler(), paramsMiddleware, actorMiddleware))
	s.Router.Handle("POST /matches/{id}/cancel", Chain(s.CancelMatchHandler(), paramsMiddleware, actorMiddleware))
	s.Router.Handle("POST /matches/{id}/force-cancel", Chain(s.ForceCancelHandler(), paramsMiddleware, actorMiddleware))
	s.Router.Handle("POST /matches/{id}/result", Chain(s.ReportResultHandler(), paramsMiddleware, actorMiddleware))
	s.Router.Handle("POST /results/{id}/resolve", Chain(s.ResolveDisputeHandler(), paramsMiddleware, actorMiddleware))

	s.Router.Handle("POST /slots/{id}/applications", Chain(s.ApplyHandler(), paramsMiddleware, actorMiddleware))
	s.Router.Handle("GET /slots/{id}/applications", Chain(s.ListApplicationsHandler(), paramsMiddleware))
	s.Router.Handle("POST /slots/{id}/hold", Chain(s.HoldHandler(), paramsMiddleware, actorMiddleware))
	s.Router.Handle("POST /slots/{id}/confirm", Chain(s.ConfirmHandler(), paramsMiddleware, actorMiddleware))
	s.Router.Handle("POST /applications/{id}/reject", Chain(s.RejectHandler(), paramsMiddleware, actorMiddleware))
	s.Router.Handle("DELETE /applications/{id}", Chain(s.WithdrawHandler(), paramsMiddleware, actorMiddleware))

	s.Router.Handle("GET /users/{id}/stats", Chain(s.StatsHandler(), paramsMiddleware))
	s.Router.Handle("GET /users/{id}/elo", Chain(s.EloHistoryHandler(), paramsMiddleware))
	s.Router.Handle("GET /users/{id}/verify", Chain(s.VerifyStatsHandler(), paramsMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
