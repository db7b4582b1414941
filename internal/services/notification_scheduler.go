package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/naramuhl/finance-friend-central/internal/core"
)

// Notification is an alert about one urgent goal.
type Notification struct {
	GoalID      string `json:"goalId"`
	Tier        Tier   `json:"tier"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Destructive bool   `json:"destructive"`

	// Duration is how long the alert stays on screen.
	Duration time.Duration `json:"-"`
}

// NotificationScheduler emits at most one notification per goal for the
// lifetime of a session. A goal already notified is skipped on later scans
// even if its tier gets worse.
type NotificationScheduler struct {
	mu       sync.Mutex
	notified map[string]struct{}
}

func NewNotificationScheduler() *NotificationScheduler {
	return &NotificationScheduler{notified: make(map[string]struct{})}
}

// Scan evaluates every open goal with a deadline and returns notifications for
// the urgent ones that have not been notified yet.
func (s *NotificationScheduler) Scan(goals []core.FinancialGoal, today core.Date) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Notification
	for _, g := range goals {
		if g.IsCompleted || g.Deadline == nil {
			continue
		}
		if _, seen := s.notified[g.ID]; seen {
			continue
		}
		p := EvaluateGoal(g, today)
		if !p.Tier.Urgent() {
			continue
		}
		s.notified[g.ID] = struct{}{}
		out = append(out, buildNotification(p))
	}
	return out
}

// Notified reports whether the goal was already notified in this session.
func (s *NotificationScheduler) Notified(goalID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.notified[goalID]
	return ok
}

// Reset forgets every notified goal. Called on session teardown.
func (s *NotificationScheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.notified)
}

func (n Notification) MarshalJSON() ([]byte, error) {
	type alias Notification
	return json.Marshal(struct {
		alias
		DurationMS int64 `json:"durationMs"`
	}{alias(n), n.Duration.Milliseconds()})
}

func buildNotification(p GoalProgress) Notification {
	n := Notification{GoalID: p.Goal.ID, Tier: p.Tier}
	name := p.Goal.Name
	switch p.Tier {
	case TierOverdue:
		n.Title = "⚠️ Meta vencida!"
		n.Message = fmt.Sprintf("A meta %q venceu há %d dia(s). Faltam %s para atingir o objetivo.",
			name, p.OverdueDays, core.FormatBRL(p.Remaining))
		n.Destructive = true
		n.Duration = 8 * time.Second
	case TierDueToday:
		n.Title = "🚨 Meta vence hoje!"
		n.Message = fmt.Sprintf("A meta %q vence hoje! Você está em %.0f%% do objetivo.", name, p.ProgressPercent)
		n.Destructive = true
		n.Duration = 8 * time.Second
	case TierDueSoon:
		n.Title = "⏰ Meta com prazo próximo"
		n.Message = fmt.Sprintf("A meta %q vence em %d dia(s). Você está em %.0f%% do objetivo.",
			name, *p.DaysRemaining, p.ProgressPercent)
		n.Duration = 6 * time.Second
	case TierAtRisk:
		n.Title = "📊 Atenção à sua meta"
		n.Message = fmt.Sprintf("A meta %q vence em %d dias e você está com apenas %.0f%% do objetivo.",
			name, *p.DaysRemaining, p.ProgressPercent)
		n.Duration = 5 * time.Second
	}
	return n
}
