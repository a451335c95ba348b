package services

import (
	"sort"
	"sync"
	"time"

	"chat-meter/models"
)

// AccountState is the per-account record created at first login and kept for the
// lifetime of the process. Logging out detaches it; logging in again reattaches it.
type AccountState struct {
	// submit serializes chat cycles so an account never has two provider calls in flight
	submit sync.Mutex

	mu                  sync.Mutex
	account             models.Account
	turns               []models.Turn
	upload              *models.PendingUpload
	confirmClearPending bool
	spentMicros         int64
	openedAt            time.Time
}

func (s *AccountState) Account() models.Account {
	return s.account
}

// History returns a copy of the conversation log, oldest first.
func (s *AccountState) History() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *AccountState) appendTurn(t models.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, t)
}

// RequestClear arms the two-step clear without touching the log.
func (s *AccountState) RequestClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmClearPending = true
}

// ConfirmClear empties the log. Usage totals are untouched.
func (s *AccountState) ConfirmClear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.confirmClearPending {
		return ErrNoPendingClear
	}
	s.turns = nil
	s.confirmClearPending = false
	return nil
}

func (s *AccountState) CancelClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmClearPending = false
}

func (s *AccountState) ClearPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmClearPending
}

// Upload returns the pending document, if any.
func (s *AccountState) Upload() *models.PendingUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upload == nil {
		return nil
	}
	u := *s.upload
	return &u
}

func (s *AccountState) setUpload(u *models.PendingUpload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upload = u
}

// ClearUpload forgets the pending document. Reports whether one was set.
func (s *AccountState) ClearUpload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.upload != nil
	s.upload = nil
	return had
}

// Spent is the account's cumulative charged USD in this process.
func (s *AccountState) Spent() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fromMicros(s.spentMicros)
}

func (s *AccountState) addSpent(usd float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spentMicros += toMicros(usd)
}

// SessionRegistry owns one AccountState per account name.
type SessionRegistry struct {
	mu       sync.Mutex
	accounts map[string]*AccountState
	now      func() time.Time
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		accounts: make(map[string]*AccountState),
		now:      time.Now,
	}
}

// Open returns the account's record, constructing it with defaults on first use.
func (r *SessionRegistry) Open(account models.Account) *AccountState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.accounts[account.Name]; ok {
		return s
	}
	s := &AccountState{
		account:  account,
		turns:    []models.Turn{},
		openedAt: r.now(),
	}
	r.accounts[account.Name] = s
	return s
}

// Get returns an existing record; nil when the account never logged in.
func (r *SessionRegistry) Get(name string) *AccountState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[name]
}

// All returns every record sorted by account name.
func (r *SessionRegistry) All() []*AccountState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*AccountState, 0, len(r.accounts))
	for _, s := range r.accounts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].account.Name < out[j].account.Name })
	return out
}

// OpenedAt is when the account first logged in during this process.
func (s *AccountState) OpenedAt() time.Time {
	return s.openedAt
}
