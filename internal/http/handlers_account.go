package http

import (
	"net/http"
	"time"

	"ahorro/internal/core"
	"ahorro/internal/identity"
	"ahorro/internal/log"
	"ahorro/internal/services"
)

type sessionView struct {
	UID       string `json:"uid"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

func newSessionView(s identity.Session) sessionView {
	return sessionView{UID: s.UID, Token: s.Token, ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339)}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	if req.Email == "" || req.Password == "" {
		BadRequestError("Ingresa email y contraseña").Write(w)
		return
	}

	session, err := s.svc.Accounts.Register(r.Context(), services.RegisterInput{
		Email:       sanitizeInput(req.Email),
		Password:    req.Password,
		DisplayName: sanitizeInput(req.DisplayName),
		Username:    sanitizeInput(req.Username),
	})
	if err != nil {
		writeError(w, r, err, log.ComponentAuth, log.OpRegister)
		return
	}
	Created(w, newSessionView(session))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	if req.Email == "" || req.Password == "" {
		BadRequestError("Ingresa email y contraseña").Write(w)
		return
	}

	session, err := s.svc.Accounts.SignIn(r.Context(), sanitizeInput(req.Email), req.Password)
	if err != nil {
		writeError(w, r, err, log.ComponentAuth, log.OpSignIn)
		return
	}
	OK(w, newSessionView(session))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Accounts.Me(r.Context())
	if err != nil {
		writeError(w, r, err, log.ComponentAuth, log.OpRead)
		return
	}
	OK(w, newProfileView(p))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	income, goal := req.MonthlyIncome.Round(2), req.SavingGoal.Round(2)
	if err := s.svc.Finance.UpdateIncomeGoal(r.Context(), income, goal); err != nil {
		writeError(w, r, err, log.ComponentFinance, log.OpUpdate)
		return
	}
	OK(w, map[string]any{"monthlyIncome": income, "savingGoal": goal})
}

// handleAddExpense stores the expense and returns the refreshed summary.
// When only the refresh fails the expense is kept and reported with a 500.
func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	amount, err := core.ParseAmount(string(req.Amount))
	if err != nil {
		writeError(w, r, err, log.ComponentFinance, log.OpCreate)
		return
	}

	ctx := r.Context()
	id, summary, err := s.svc.Finance.AddExpenseAndRefresh(ctx, amount, core.ExpenseType(sanitizeInput(req.Type)), sanitizeInput(req.Note))
	if err != nil {
		writeError(w, r, err, log.ComponentFinance, log.OpCreate)
		return
	}
	uid, _ := identity.UIDFromContext(ctx)
	log.NewStructuredLogger(log.FromContext(ctx)).LogExpenseAdded(ctx, uid, id, req.Type, amount.StringFixed(2))
	Created(w, expenseCreatedView{ID: id, Summary: newSummaryView(summary)})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.Finance.CurrentMonthExpenses(r.Context())
	if err != nil {
		writeError(w, r, err, log.ComponentFinance, log.OpList)
		return
	}
	OK(w, map[string]any{"expenses": newTransactionViews(txs)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Finance.MySummary(r.Context())
	if err != nil {
		writeError(w, r, err, log.ComponentFinance, log.OpRead)
		return
	}
	OK(w, newSummaryView(summary))
}

func (s *Server) handleRefreshSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Finance.UpdateMySummary(r.Context())
	if err != nil {
		writeError(w, r, err, log.ComponentFinance, log.OpRefresh)
		return
	}
	OK(w, newSummaryView(summary))
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulationRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError("Formato de solicitud inválido").Write(w)
		return
	}
	res, err := core.Simulate(req.input())
	if err != nil {
		writeError(w, r, err, log.ComponentFinance, log.OpSimulate)
		return
	}
	OK(w, simulationView{
		GasolinaSaved: res.GasolinaSaved,
		LuzSaved:      res.LuzSaved,
		AguaSaved:     res.AguaSaved,
		CO2AvoidedKg:  res.CO2AvoidedKg,
		EnergyKWh:     res.EnergyKWh,
		WaterLitres:   res.WaterLitres,
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Finance.Progress(r.Context())
	if err != nil {
		writeError(w, r, err, log.ComponentFinance, log.OpRead)
		return
	}
	OK(w, progressView{Progress: a.Progress, Mood: string(a.Mood), Message: a.Message, Tip: a.Tip})
}
