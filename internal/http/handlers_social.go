package http

import (
	"net/http"

	"ahorro/internal/core"
	"ahorro/internal/identity"
	"ahorro/internal/log"
)

func (s *Server) handleSavePublicSummary(w http.ResponseWriter, r *http.Request) {
	var req publicSummaryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	saved, err := s.svc.Sharing.SavePublicSummary(r.Context(), core.PublicSummary{
		EnergyScore:  req.EnergyScore,
		WaterScore:   req.WaterScore,
		SavingsScore: req.SavingsScore,
	}, req.ShareStats)
	if err != nil {
		writeError(w, r, err, log.ComponentSharing, log.OpUpdate)
		return
	}
	OK(w, map[string]any{
		"summary":    newPublicSummaryView(saved),
		"shareStats": req.ShareStats,
	})
}

func (s *Server) handlePublicSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Sharing.PublicSummary(r.Context(), sanitizeInput(r.PathValue("uid")))
	if err != nil {
		writeError(w, r, err, log.ComponentSharing, log.OpRead)
		return
	}
	OK(w, newPublicSummaryView(summary))
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := s.svc.Ranking.Ranking(ctx)
	if err != nil {
		writeError(w, r, err, log.ComponentRanking, log.OpList)
		return
	}
	uid, _ := identity.UIDFromContext(ctx)
	OK(w, map[string]any{"ranking": newRankingViews(entries, uid)})
}

func (s *Server) handleFriendsDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Ranking.FriendsDashboard(r.Context())
	if err != nil {
		writeError(w, r, err, log.ComponentRanking, log.OpRead)
		return
	}
	OK(w, newDashboardView(d))
}
