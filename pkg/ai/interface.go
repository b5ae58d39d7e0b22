package ai

import "context"

// Intent is the classified purpose of an inbound email. The set is closed:
// dispatch switches over it exhaustively and an unknown tag is rejected at
// classification time, so adding an intent forces every switch to be revisited.
type Intent string

const (
	IntentNewRequest    Intent = "new_request"
	IntentStatusInquiry Intent = "status_inquiry"
	IntentReorder       Intent = "reorder"
	IntentApproval      Intent = "approval"
	IntentGeneral       Intent = "general"
)

// Valid reports whether the tag is one of the five known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentNewRequest, IntentStatusInquiry, IntentReorder, IntentApproval, IntentGeneral:
		return true
	}
	return false
}

// RequestedItem is one sign the customer asked for, as extracted from the
// email body. Size stays a free-text string; the pricing engine parses it.
type RequestedItem struct {
	Description string `json:"description"`
	SignType    string `json:"sign_type"`
	Material    string `json:"material,omitempty"`
	Size        string `json:"size"`
	Quantity    int    `json:"quantity"`
}

// Classification is the structured result of classify-and-extract.
type Classification struct {
	Intent       Intent          `json:"intent"`
	Items        []RequestedItem `json:"items,omitempty"`
	Keywords     []string        `json:"keywords,omitempty"`
	JobReference string          `json:"job_reference,omitempty"`
}

// DraftContext carries everything a reply draft needs. Unset fields are
// simply omitted from the prompt.
type DraftContext struct {
	Purpose        string // "status_reply", "reorder_confirmation", "completion_email"
	CustomerName   string
	Subject        string
	OriginalBody   string
	JobDescription string
	JobStage       string
	ETA            string
	Notes          string
}

// ClassifierService is the language-model collaborator boundary.
// Implement this interface to add new AI providers (Gemini, Ollama, ...).
// Output is always an untrusted draft: nothing returned here causes an
// external side effect without human confirmation.
type ClassifierService interface {
	ClassifyEmail(ctx context.Context, subject, body string) (*Classification, error)
	DraftReply(ctx context.Context, draft DraftContext) (string, error)
}

// ProviderType selects the AI provider in the factory.
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
