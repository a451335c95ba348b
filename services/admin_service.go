package services

import (
	"context"
	"sort"
	"time"

	"chat-meter/models"
)

// AdminMetrics is the operator overview returned by /admin/metrics.
type AdminMetrics struct {
	Day            string  `json:"day"`
	OpenAccounts   int64   `json:"open_accounts"`
	TotalTurns     int64   `json:"total_turns"`
	FailedTurns    int64   `json:"failed_turns"`
	PendingUploads int64   `json:"pending_uploads"`
	ArchivedTurns  *int64  `json:"archived_turns,omitempty"`
	TodayUSD       float64 `json:"today_usd"`
	DaysRecorded   int64   `json:"days_recorded"`
}

// ConversationSummary is one row of the recent conversations view.
type ConversationSummary struct {
	Account   string    `json:"account"`
	Day       string    `json:"day,omitempty"`
	Question  string    `json:"question"`
	Tokens    int       `json:"tokens_used"`
	USD       float64   `json:"usd_cost"`
	Failed    bool      `json:"failed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const DefaultRecentLimit = 10

// AdminService reads across every account. It never mutates state.
type AdminService struct {
	Sessions *SessionRegistry
	Ledger   *UsageLedger
	Turns    TurnArchive // optional
	Now      func() time.Time
}

func (s *AdminService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Metrics aggregates the in-memory logs, the ledger and, when configured, the archive.
func (s *AdminService) Metrics(ctx context.Context) (AdminMetrics, error) {
	day := s.now().Format(dayLayout)
	m := AdminMetrics{
		Day:          day,
		TodayUSD:     Round(s.Ledger.Spent(day), 4),
		DaysRecorded: int64(len(s.Ledger.Snapshot())),
	}

	for _, st := range s.Sessions.All() {
		m.OpenAccounts++
		for _, t := range st.History() {
			m.TotalTurns++
			if t.Failed {
				m.FailedTurns++
			}
		}
		if st.Upload() != nil {
			m.PendingUploads++
		}
	}

	if s.Turns != nil {
		n, err := s.Turns.CountTurns(ctx)
		if err != nil {
			return AdminMetrics{}, err
		}
		m.ArchivedTurns = &n
	}
	return m, nil
}

// RecentConversations lists the newest turns across all accounts. The archive is
// preferred because it survives restarts; without one the live logs are used.
func (s *AdminService) RecentConversations(ctx context.Context, limit int64) ([]ConversationSummary, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	if s.Turns != nil {
		archived, err := s.Turns.RecentTurns(ctx, limit)
		if err != nil {
			return nil, err
		}
		out := make([]ConversationSummary, 0, len(archived))
		for _, a := range archived {
			out = append(out, summarize(a.Account, a.Day, a.Turn))
		}
		return out, nil
	}

	var out []ConversationSummary
	for _, st := range s.Sessions.All() {
		for _, t := range st.History() {
			out = append(out, summarize(st.Account().Name, t.Timestamp.Format(dayLayout), t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []ConversationSummary{}
	}
	return out, nil
}

func summarize(account, day string, t models.Turn) ConversationSummary {
	return ConversationSummary{
		Account:   account,
		Day:       day,
		Question:  t.Question,
		Tokens:    t.Tokens,
		USD:       t.USD,
		Failed:    t.Failed,
		Timestamp: t.Timestamp,
	}
}
