package http

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtmatch/internal/lifecycle"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/rating"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) CreateMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req lifecycle.NewMatch
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		req.CreatorID = actorFromContext(r)
		view, err := s.Service.CreateMatch(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, view)
	}
}

func (s *Server) GetMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := s.Service.GetMatch(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) UpdateMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch lifecycle.MatchPatch
		if err := decode(r, &patch); err != nil {
			writeError(w, err)
			return
		}
		view, err := s.Service.UpdateMatch(r.Context(), r.PathValue("id"), actorFromContext(r), patch)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) DeleteMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Service.DeleteMatch(r.Context(), r.PathValue("id"), actorFromContext(r)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) CancelMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cancelRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		c, err := s.Service.CancelMatch(r.Context(), r.PathValue("id"), actorFromContext(r), req.Reason)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func (s *Server) ForceCancelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cancelRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		c, err := s.Service.ForceCancel(r.Context(), r.PathValue("id"), actorFromContext(r), req.Reason)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func (s *Server) ReportResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reportRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		result, err := s.Service.ReportResult(r.Context(), r.PathValue("id"), req.Score, actorFromContext(r), req.Disputed)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) ResolveDisputeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resolveRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		result, err := s.Service.ResolveDispute(r.Context(), r.PathValue("id"), match.Resolution(req.Resolution), req.Score, actorFromContext(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) ApplyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req applyRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		app, err := s.Service.Apply(r.Context(), r.PathValue("id"), actorFromContext(r), req.GuestName)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, app)
	}
}

func (s *Server) ListApplicationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apps, err := s.Service.ListApplications(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if apps == nil {
			apps = []match.Application{}
		}
		writeJSON(w, http.StatusOK, apps)
	}
}

func (s *Server) HoldHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slot, err := s.Service.Hold(r.Context(), r.PathValue("id"), actorFromContext(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, slot)
	}
}

func (s *Server) ConfirmHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmRequest
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.ApplicationID == "" {
			writeError(w, fmt.Errorf("application_id is required: %w", match.ErrValidation))
			return
		}
		m, err := s.Service.Confirm(r.Context(), r.PathValue("id"), req.ApplicationID, actorFromContext(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) RejectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, err := s.Service.Reject(r.Context(), r.PathValue("id"), actorFromContext(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, app)
	}
}

func (s *Server) WithdrawHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Service.Withdraw(r.Context(), r.PathValue("id"), actorFromContext(r)); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.Service.GetStats(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func (s *Server) EloHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := s.Service.EloHistory(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if entries == nil {
			entries = []rating.EloLogEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) VerifyStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := s.Service.VerifyStats(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}
