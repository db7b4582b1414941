package http

import (
	"errors"
	"net/http"

	"github.com/naramuhl/finance-friend-central/internal/core"
	"github.com/naramuhl/finance-friend-central/internal/log"
	"github.com/naramuhl/finance-friend-central/internal/services"
)

var errRangeReversed = core.Invalid("from", errors.New("from must not be after to"))

func (s *Server) handleExpensesByCategory(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	writeJSON(w, http.StatusOK, newList(sess.ExpensesByCategory()))
}

// handleMonthlyComparison compares flows of ?month=YYYY-MM, or of all
// transactions when no month is given.
func (s *Server) handleMonthlyComparison(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	month, err := queryMonth(r, "month")
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.MonthlyComparison(month))
}

// handlePatrimonyHistory returns daily totals between ?from and ?to, both
// optional and inclusive.
func (s *Server) handlePatrimonyHistory(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	from, err := queryDate(r, "from")
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	if !from.IsZero() && !to.IsZero() && from.After(to.Time) {
		s.writeError(w, r, log.OpList, errRangeReversed)
		return
	}
	snaps, err := sess.PatrimonyHistory(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(snaps))
}
