package domain

import "time"

// InboundMessage is a fetched customer email after extraction. Not persisted;
// it lives only for the duration of one pipeline pass.
type InboundMessage struct {
	MessageID   string
	ThreadID    string
	FromEmail   string
	FromName    string
	Subject     string
	Body        string
	RFC822MsgID string
	ReceivedAt  time.Time
}

// SyncState stores the Gmail history cursor per watched mailbox so a webhook
// ping can be turned into the list of messages that arrived since last time.
type SyncState struct {
	EmailAddress string    `gorm:"primary_key" json:"email_address"`
	HistoryID    uint64    `json:"history_id"`
	UpdatedAt    time.Time `json:"updated_at"`
}
