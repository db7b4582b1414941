package http

import (
	"net/http"

	"github.com/naramuhl/finance-friend-central/internal/log"
	"github.com/naramuhl/finance-friend-central/internal/services"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	writeJSON(w, http.StatusOK, newList(sess.Accounts()))
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var req accountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	acc, err := sess.AddAccount(r.Context(), req.toAccount())
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var req accountPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	acc, err := sess.UpdateAccount(r.Context(), r.PathValue("id"), req.toPatch())
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// handleDeactivateAccount soft-deletes an account; it is returned inactive.
func (s *Server) handleDeactivateAccount(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	acc, err := sess.DeactivateAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// handleAdjustBalance adds a signed amount to an account balance.
func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpAdjust, err)
		return
	}
	acc, err := sess.AdjustBalance(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		s.writeError(w, r, log.OpAdjust, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}
