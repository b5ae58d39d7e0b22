package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseClassification(t *testing.T) {
	raw := "Here is the classification:\n```json\n" +
		`{"intent":"new_request","items":[{"description":"4x8 vinyl banner","sign_type":"banner","material":"vinyl","size":"4x8","quantity":2},{"description":"yard sign","sign_type":"yard sign","size":"18x24"}],"keywords":["banner"]}` +
		"\n```\nLet me know if you need anything else."

	c, err := parseClassification(raw)
	require.NoError(t, err)
	require.Equal(t, IntentNewRequest, c.Intent)
	require.Len(t, c.Items, 2)
	require.Equal(t, 2, c.Items[0].Quantity)
	// Missing quantity defaults to 1.
	require.Equal(t, 1, c.Items[1].Quantity)
}

func TestParseClassificationErrors(t *testing.T) {
	_, err := parseClassification("")
	require.ErrorIs(t, err, ErrNoResponse)

	_, err = parseClassification("I could not classify this email, sorry.")
	require.ErrorIs(t, err, ErrInvalidResponse)

	_, err = parseClassification(`{"intent":"complaint"}`)
	require.ErrorIs(t, err, ErrInvalidResponse)

	_, err = parseClassification(`{"intent": not json}`)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestIntentValid(t *testing.T) {
	for _, intent := range []Intent{IntentNewRequest, IntentStatusInquiry, IntentReorder, IntentApproval, IntentGeneral} {
		require.True(t, intent.Valid())
	}
	require.False(t, Intent("complaint").Valid())
	require.False(t, Intent("").Valid())
}

func TestDraftPromptIncludesContext(t *testing.T) {
	p := draftPrompt(DraftContext{
		Purpose:        "status_reply",
		CustomerName:   "Taylor Facility Services",
		JobDescription: "channel letters for storefront",
		JobStage:       "in_production",
		ETA:            "September 12",
	})
	require.Contains(t, p, "Taylor Facility Services")
	require.Contains(t, p, "in_production")
	require.Contains(t, p, "September 12")
	require.Contains(t, p, "The SignDesk Team")
}
