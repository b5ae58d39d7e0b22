package usecase

import (
	"testing"

	pricingdomain "signdesk-backend/internal/pricing/domain"

	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	signTypes []*pricingdomain.SignType
	materials []*pricingdomain.Material
}

func (f *fakeCatalog) ListSignTypes() ([]*pricingdomain.SignType, error) { return f.signTypes, nil }
func (f *fakeCatalog) ListMaterials() ([]*pricingdomain.Material, error) { return f.materials, nil }

type fakeHistory struct {
	entries []*pricingdomain.HistoryEntry
}

func (f *fakeHistory) Create(*pricingdomain.HistoryEntry) error { return nil }
func (f *fakeHistory) FindDecided(signTypeID, materialID string) ([]*pricingdomain.HistoryEntry, error) {
	var out []*pricingdomain.HistoryEntry
	for _, e := range f.entries {
		if e.SignTypeID != signTypeID {
			continue
		}
		if materialID != "" && e.MaterialID != materialID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
func (f *fakeHistory) SetOutcomeByEstimateItemIDs([]string, pricingdomain.Outcome) error { return nil }

func TestParseDimensions(t *testing.T) {
	tests := []struct {
		name      string
		size      string
		width     float64
		height    float64
		defaulted bool
	}{
		{name: "canonical WxH", size: "24x36", width: 24, height: 36},
		{name: "uppercase separator", size: "24X36", width: 24, height: 36},
		{name: "multiplication sign", size: "24×36", width: 24, height: 36},
		{name: "inch quotes", size: `24"x36"`, width: 24, height: 36},
		{name: "spaces around separator", size: "24 x 36", width: 24, height: 36},
		{name: "embedded in text", size: "about 24x36 please", width: 24, height: 36},
		{name: "feet marks converted", size: "2'x3'", width: 24, height: 36},
		{name: "small numbers read as feet", size: "4x8", width: 48, height: 96},
		{name: "mixed magnitude stays inches", size: "8x20", width: 8, height: 20},
		{name: "decimal feet", size: "1.5x2", width: 18, height: 24},
		{name: "unparseable defaults", size: "big sign", width: 24, height: 24, defaulted: true},
		{name: "empty defaults", size: "", width: 24, height: 24, defaulted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, defaulted := parseDimensions(tt.size)
			require.Equal(t, tt.width, w)
			require.Equal(t, tt.height, h)
			require.Equal(t, tt.defaulted, defaulted)
		})
	}
}

func TestSuggestBaseFormula(t *testing.T) {
	// 24x36, qty 3, no history, base rate $45/sqft, no minimum:
	// area 6.0, unit 270, total 810.
	engine := NewEngine(
		&fakeCatalog{signTypes: []*pricingdomain.SignType{
			{ID: "st-1", Name: "Banner", BaseRatePerSqFt: 45},
		}},
		&fakeHistory{},
	)

	s, err := engine.Suggest(Request{SignType: "banner", Size: "24x36", Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, 6.0, s.AreaSqFt)
	require.Equal(t, 270.0, s.UnitPrice)
	require.Equal(t, 810.0, s.TotalPrice)
	require.Equal(t, ConfidenceLow, s.Confidence)
	require.Equal(t, SourceBaseFormula, s.PriceSource)
	require.False(t, s.SizeDefaulted)
}

func TestSuggestMinimumClamp(t *testing.T) {
	engine := NewEngine(
		&fakeCatalog{signTypes: []*pricingdomain.SignType{
			{ID: "st-1", Name: "Decal", BaseRatePerSqFt: 10, MinPrice: 75},
		}},
		&fakeHistory{},
	)

	// 1 sqft at $10/sqft is under the $75 minimum.
	s, err := engine.Suggest(Request{SignType: "decal", Size: "12x12", Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, 75.0, s.UnitPrice)
	require.Equal(t, SourceMinimum, s.PriceSource)
	require.Equal(t, ConfidenceLow, s.Confidence)
}

func TestSuggestGenericFallback(t *testing.T) {
	engine := NewEngine(&fakeCatalog{}, &fakeHistory{})

	s, err := engine.Suggest(Request{SignType: "hologram", Size: "24x36", Quantity: 1})
	require.NoError(t, err)
	// 6 sqft x $30 generic rate
	require.Equal(t, 180.0, s.UnitPrice)
	require.Equal(t, SourceBaseFormula, s.PriceSource)
	require.Equal(t, ConfidenceLow, s.Confidence)
	require.Empty(t, s.SignTypeID)
}

func TestSuggestHistoricalHighConfidence(t *testing.T) {
	// 15 decided entries around 6 sqft at $50/sqft, win rate 0.75:
	// adjusted x1.10, confidence high.
	var entries []*pricingdomain.HistoryEntry
	for i := 0; i < 15; i++ {
		outcome := pricingdomain.OutcomeWon
		if i%4 == 0 { // 4 of 15 lost -> 11/15 ≈ 0.733 > 0.7
			outcome = pricingdomain.OutcomeLost
		}
		entries = append(entries, &pricingdomain.HistoryEntry{
			SignTypeID: "st-1",
			AreaSqFt:   6.0,
			UnitPrice:  300, // $50/sqft
			Outcome:    outcome,
		})
	}

	engine := NewEngine(
		&fakeCatalog{signTypes: []*pricingdomain.SignType{
			{ID: "st-1", Name: "Channel Letters", BaseRatePerSqFt: 45},
		}},
		&fakeHistory{entries: entries},
	)

	s, err := engine.Suggest(Request{SignType: "channel letters", Size: "24x36", Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, SourceHistorical, s.PriceSource)
	require.Equal(t, ConfidenceHigh, s.Confidence)
	require.Equal(t, 15, s.SampleSize)
	require.InDelta(t, 0.733, s.WinRate, 0.001)
	// 6 sqft * 50 * 1.10 = 330
	require.Equal(t, 330.0, s.UnitPrice)
}

func TestSuggestHistoricalMediumAndAreaFilter(t *testing.T) {
	entries := []*pricingdomain.HistoryEntry{
		{SignTypeID: "st-1", AreaSqFt: 6.0, UnitPrice: 240, Outcome: pricingdomain.OutcomeWon},
		{SignTypeID: "st-1", AreaSqFt: 5.5, UnitPrice: 220, Outcome: pricingdomain.OutcomeLost},
		{SignTypeID: "st-1", AreaSqFt: 7.0, UnitPrice: 280, Outcome: pricingdomain.OutcomeWon},
		// Outside ±30% of 6 sqft: must be excluded from the sample.
		{SignTypeID: "st-1", AreaSqFt: 20.0, UnitPrice: 900, Outcome: pricingdomain.OutcomeWon},
	}

	engine := NewEngine(
		&fakeCatalog{signTypes: []*pricingdomain.SignType{
			{ID: "st-1", Name: "Banner", BaseRatePerSqFt: 45},
		}},
		&fakeHistory{entries: entries},
	)

	s, err := engine.Suggest(Request{SignType: "banner", Size: "24x36", Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, ConfidenceMedium, s.Confidence)
	require.Equal(t, 3, s.SampleSize)
	// win rate 2/3 is between thresholds: no adjustment; mean rate $40/sqft.
	require.Equal(t, 240.0, s.UnitPrice)
	require.Equal(t, 480.0, s.TotalPrice)
}

func TestSuggestMaterialMultiplier(t *testing.T) {
	engine := NewEngine(
		&fakeCatalog{
			signTypes: []*pricingdomain.SignType{{ID: "st-1", Name: "Banner", BaseRatePerSqFt: 45}},
			materials: []*pricingdomain.Material{{ID: "m-1", Name: "Brushed Aluminum", PriceMultiplier: 1.5}},
		},
		&fakeHistory{},
	)

	s, err := engine.Suggest(Request{SignType: "banner", Material: "aluminum", Size: "24x36", Quantity: 1})
	require.NoError(t, err)
	require.Equal(t, "m-1", s.MaterialID)
	// 6 * 45 * 1.5
	require.Equal(t, 405.0, s.UnitPrice)
}

func TestSuggestUnparseableSizeFlagsDefault(t *testing.T) {
	engine := NewEngine(&fakeCatalog{}, &fakeHistory{})
	s, err := engine.Suggest(Request{SignType: "", Size: "whatever fits"})
	require.NoError(t, err)
	require.True(t, s.SizeDefaulted)
	require.Equal(t, 4.0, s.AreaSqFt) // 24x24 default
	require.Equal(t, 1, s.Quantity)   // zero quantity normalized
}
