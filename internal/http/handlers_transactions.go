package http

import (
	"net/http"

	"github.com/naramuhl/finance-friend-central/internal/core"
	"github.com/naramuhl/finance-friend-central/internal/log"
	"github.com/naramuhl/finance-friend-central/internal/services"
)

// handleListTransactions lists transactions by due date. The optional type
// query parameter narrows the list to receivables or payables.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var txs []core.Transaction
	switch t := core.TransactionType(r.URL.Query().Get("type")); t {
	case "":
		txs = sess.Transactions()
	case core.Receivable:
		txs = sess.Receivables()
	case core.Payable:
		txs = sess.Payables()
	default:
		s.writeError(w, r, log.OpList, core.Invalid("type", core.ErrInvalidType))
		return
	}
	writeJSON(w, http.StatusOK, newList(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	tx, err := sess.AddTransaction(r.Context(), req.toTransaction())
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	if err := sess.RemoveTransaction(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleToggleTransaction flips a transaction between pending and paid and
// settles it against the given account, or the primary one.
func (s *Server) handleToggleTransaction(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	var req accountRefRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpToggle, err)
		return
	}
	tx, err := sess.ToggleStatus(r.Context(), r.PathValue("id"), req.AccountID)
	if err != nil {
		s.writeError(w, r, log.OpToggle, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
