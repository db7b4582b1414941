package http

import (
	"net/http"

	"github.com/naramuhl/finance-friend-central/internal/log"
	"github.com/naramuhl/finance-friend-central/internal/services"
)

// handleListGoals lists goals with their progress and deadline tier.
func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	writeJSON(w, http.StatusOK, newList(sess.Goals()))
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var req goalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	g, err := sess.AddGoal(r.Context(), req.toGoal())
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// handleContributeToGoal deposits or withdraws money. With accountId the
// account is debited by the amount actually applied.
func (s *Server) handleContributeToGoal(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var req amountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpContribute, err)
		return
	}
	g, err := sess.ContributeToGoal(r.Context(), r.PathValue("id"), req.Amount, req.AccountID)
	if err != nil {
		s.writeError(w, r, log.OpContribute, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleCompleteGoal(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	g, err := sess.CompleteGoal(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, log.OpComplete, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	if err := sess.RemoveGoal(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
