package usecase

import "sync"

// State names where a conversation with the operator currently stands.
// Absence of a session means idle.
type State string

const (
	StateSelectingItem               State = "selecting_item"
	StateSelectingField              State = "selecting_field"
	StateAwaitingPriceInput          State = "awaiting_price_input"
	StateAwaitingQuantityInput       State = "awaiting_quantity_input"
	StateAwaitingTurnaroundInput     State = "awaiting_turnaround_input"
	StateAwaitingStatusReplyEdit     State = "awaiting_status_reply_edit"
	StateAwaitingCompletionEmailEdit State = "awaiting_completion_email_edit"
)

// EditSession is the per-operator conversation state. One session per chat;
// starting a new flow overwrites whatever was in progress (last action wins).
type EditSession struct {
	State      State
	EstimateID string
	ItemID     string
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*EditSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[int64]*EditSession)}
}

func (s *sessionStore) Put(chatID int64, session *EditSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID] = session
}

func (s *sessionStore) Get(chatID int64) *EditSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[chatID]
}

func (s *sessionStore) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

// StagedReply is an outbound customer email waiting for operator approval.
type StagedReply struct {
	Kind      string // "status_reply" or "reorder_confirmation"
	To        string
	Subject   string
	Body      string
	ThreadID  string
	InReplyTo string
}

// CompletionData holds the drafted completion email and invoice attachment
// for a job the operator just marked completed.
type CompletionData struct {
	JobID     string
	InvoiceID string
	To        string
	Subject   string
	Body      string
	ThreadID  string
	PDF       []byte
}

type stagedStore struct {
	mu          sync.Mutex
	replies     map[int64]*StagedReply
	completions map[int64]*CompletionData
}

func newStagedStore() *stagedStore {
	return &stagedStore{
		replies:     make(map[int64]*StagedReply),
		completions: make(map[int64]*CompletionData),
	}
}

func (s *stagedStore) PutReply(chatID int64, r *StagedReply) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[chatID] = r
}

func (s *stagedStore) GetReply(chatID int64) *StagedReply {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replies[chatID]
}

func (s *stagedStore) ClearReply(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.replies, chatID)
}

func (s *stagedStore) PutCompletion(chatID int64, c *CompletionData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions[chatID] = c
}

func (s *stagedStore) GetCompletion(chatID int64) *CompletionData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completions[chatID]
}

func (s *stagedStore) ClearCompletion(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.completions, chatID)
}
