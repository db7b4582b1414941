package http

import (
	"net/http"

	"github.com/naramuhl/finance-friend-central/internal/core"
	"github.com/naramuhl/finance-friend-central/internal/log"
	"github.com/naramuhl/finance-friend-central/internal/services"
)

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *services.Session)

// withSession resolves the caller's active session before running next.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFrom(r)
		if err != nil {
			s.writeError(w, r, log.OpLoad, err)
			return
		}
		sess, err := s.sessions.Get(userID)
		if err != nil {
			s.writeError(w, r, log.OpLoad, err)
			return
		}
		ctx := log.WithLogger(r.Context(), log.FromContext(r.Context()).With(log.FieldUserID, userID))
		next(w, r.WithContext(ctx), sess)
	}
}

type sessionResponse struct {
	UserID         string        `json:"userId"`
	PrimaryAccount *core.Account `json:"primaryAccount,omitempty"`
	Summary        core.Summary  `json:"summary"`
}

func newSessionResponse(sess *services.Session) sessionResponse {
	resp := sessionResponse{UserID: sess.UserID(), Summary: sess.Summary()}
	if acc, ok := sess.PrimaryAccount(); ok {
		resp.PrimaryAccount = &acc
	}
	return resp
}

// handleStartSession loads the caller's data, or reloads the session that
// is already active.
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		s.writeError(w, r, log.OpLoad, err)
		return
	}
	sess, err := s.sessions.Start(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, log.OpLoad, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

// handleEndSession discards the caller's session. Ending a session that
// does not exist succeeds.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r)
	if err != nil {
		s.writeError(w, r, log.OpShutdown, err)
		return
	}
	s.sessions.End(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	writeJSON(w, http.StatusOK, newSessionResponse(sess))
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	writeJSON(w, http.StatusOK, newList(sess.Notifications()))
}
