package http

import (
	"errors"
	"net/http"

	"github.com/naramuhl/finance-friend-central/internal/core"
	"github.com/naramuhl/finance-friend-central/internal/log"
	"github.com/naramuhl/finance-friend-central/internal/services"
)

var errMissingIsActive = errors.New("isActive is required")

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	writeJSON(w, http.StatusOK, newList(sess.IncomeSources()))
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var req incomeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	src, err := sess.AddIncomeSource(r.Context(), req.toIncomeSource())
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

// handleUpdateIncome switches an income source on or off.
func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var req incomePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	if req.IsActive == nil {
		s.writeError(w, r, log.OpUpdate, core.Invalid("isActive", errMissingIsActive))
		return
	}
	src, err := sess.SetIncomeSourceActive(r.Context(), r.PathValue("id"), *req.IsActive)
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, src)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	if err := sess.RemoveIncomeSource(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
