package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Prompts are shared across providers so Gemini and Ollama stay consistent.

func classifyPrompt(subject, body string) string {
	return fmt.Sprintf(`You are the intake assistant for a sign fabrication shop. Classify the customer email below and extract structured data.

Respond with ONLY a JSON object, no prose, in this exact shape:
{
  "intent": "new_request" | "status_inquiry" | "reorder" | "approval" | "general",
  "items": [{"description": "...", "sign_type": "...", "material": "...", "size": "...", "quantity": 1}],
  "keywords": ["..."],
  "job_reference": "..."
}

RULES:
- "new_request": customer asks for a quote or new signage. Fill items with every sign requested. Keep size as written in the email (e.g. "24x36", "4'x8'").
- "status_inquiry": customer asks about progress of existing work. Fill keywords with the words identifying the job, and job_reference if they name it.
- "reorder": customer wants the same thing as a previous order. Fill keywords.
- "approval": customer approves a quote or proof we sent.
- "general": anything else (thanks, spam, unrelated).
- Omit items/keywords/job_reference when not applicable. quantity defaults to 1.

SUBJECT: %s

EMAIL:
%s

JSON:`, subject, body)
}

func draftPrompt(d DraftContext) string {
	var b strings.Builder
	switch d.Purpose {
	case "completion_email":
		b.WriteString("Write a short, friendly email telling the customer their sign work is complete, the invoice is attached, and we appreciate their business.\n")
	case "reorder_confirmation":
		b.WriteString("Write a short, friendly email confirming we received the customer's reorder request and will send a quote shortly.\n")
	default:
		b.WriteString("Write a short, friendly email answering the customer's question about the status of their sign order.\n")
	}
	b.WriteString("Plain text only, no subject line, no placeholders like [Name] left unfilled, sign off as \"The SignDesk Team\".\n\n")

	if d.CustomerName != "" {
		fmt.Fprintf(&b, "CUSTOMER: %s\n", d.CustomerName)
	}
	if d.JobDescription != "" {
		fmt.Fprintf(&b, "JOB: %s\n", d.JobDescription)
	}
	if d.JobStage != "" {
		fmt.Fprintf(&b, "CURRENT STAGE: %s\n", d.JobStage)
	}
	if d.ETA != "" {
		fmt.Fprintf(&b, "ESTIMATED COMPLETION: %s\n", d.ETA)
	}
	if d.Notes != "" {
		fmt.Fprintf(&b, "NOTES: %s\n", d.Notes)
	}
	if d.OriginalBody != "" {
		fmt.Fprintf(&b, "\nTHE CUSTOMER WROTE:\n%s\n", d.OriginalBody)
	}
	b.WriteString("\nEMAIL:")
	return b.String()
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseClassification extracts and validates the JSON object from raw model
// output. Models tend to wrap JSON in markdown fences or chatter; take the
// outermost object and ignore the rest.
func parseClassification(raw string) (*Classification, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrNoResponse
	}

	blob := jsonObjectPattern.FindString(raw)
	if blob == "" {
		return nil, fmt.Errorf("%w: no JSON object in output", ErrInvalidResponse)
	}

	var c Classification
	if err := json.Unmarshal([]byte(blob), &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if !c.Intent.Valid() {
		return nil, fmt.Errorf("%w: unknown intent %q", ErrInvalidResponse, c.Intent)
	}
	for i := range c.Items {
		if c.Items[i].Quantity <= 0 {
			c.Items[i].Quantity = 1
		}
	}
	return &c, nil
}
