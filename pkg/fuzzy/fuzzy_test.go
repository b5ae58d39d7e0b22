package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Channel Letters", "channel letters"},
		{"strips punctuation", `Letters(24"x18") - front!`, "letters 24 x18 front"},
		{"collapses whitespace", "  two   yard\tsigns ", "two yard signs"},
		{"keeps unicode letters", "Café Señalización", "café señalización"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestContainsNormalized(t *testing.T) {
	require.True(t, ContainsNormalized(`Channel Letters (24"x18") for storefront`, "channel letters"))
	require.True(t, ContainsNormalized("MONUMENT SIGN, granite base", "monument"))
	require.False(t, ContainsNormalized("vinyl banner", "monument"))
	require.False(t, ContainsNormalized("anything", ""))
}

func TestNameMatches(t *testing.T) {
	require.True(t, NameMatches("aluminum", "Brushed Aluminum"))
	require.True(t, NameMatches("Channel Letters - Lit", "channel letters"))
	require.True(t, NameMatches("Banner", "banner"))
	require.False(t, NameMatches("banner", "Yard Sign"))
	require.False(t, NameMatches("", "Banner"))
}
