package usecase

import (
	"log"
	"math"

	pricingdomain "signdesk-backend/internal/pricing/domain"
	"signdesk-backend/internal/pricing/repository"
	"signdesk-backend/pkg/fuzzy"
)

// Price sources, consumed verbatim by the approval proposal renderer.
const (
	SourceHistorical  = "historical"
	SourceBaseFormula = "base_formula"
	SourceMinimum     = "minimum"
)

// Confidence tiers.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

const (
	// genericRatePerSqFt prices items with no history and no catalog rate.
	genericRatePerSqFt = 30.0

	areaTolerance  = 0.30 // historical sample must be within ±30% of requested area
	minSampleSize  = 3
	highSampleSize = 10
	winRateHigh    = 0.7 // above this there is room for margin
	winRateLow     = 0.4 // below this price more competitively
)

// Request is one sign the customer asked for, ready to price.
type Request struct {
	SignType string
	Material string
	Size     string
	Quantity int
}

// Suggestion is a priced line item with the evidence behind it.
type Suggestion struct {
	SignTypeID    string
	SignTypeName  string
	MaterialID    string
	MaterialName  string
	WidthIn       float64
	HeightIn      float64
	AreaSqFt      float64
	Quantity      int
	UnitPrice     float64
	TotalPrice    float64
	Confidence    string
	SampleSize    int
	WinRate       float64
	PriceSource   string
	SizeDefaulted bool
}

// Engine computes price suggestions from the catalogs and pricing history.
// Pure: no persistent side effects, only reference-data reads.
type Engine struct {
	catalog repository.CatalogRepository
	history repository.HistoryRepository
}

func NewEngine(catalog repository.CatalogRepository, history repository.HistoryRepository) *Engine {
	return &Engine{catalog: catalog, history: history}
}

// Suggest prices a single requested item.
func (e *Engine) Suggest(req Request) (*Suggestion, error) {
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	widthIn, heightIn, defaulted := parseDimensions(req.Size)
	if defaulted {
		log.Printf("[Pricing] Could not parse size %q, defaulting to %dx%d inches", req.Size, defaultWidthIn, defaultHeightIn)
	}
	area := round2(widthIn * heightIn / 144)

	s := &Suggestion{
		WidthIn:       widthIn,
		HeightIn:      heightIn,
		AreaSqFt:      area,
		Quantity:      req.Quantity,
		SizeDefaulted: defaulted,
	}

	signType, err := e.resolveSignType(req.SignType)
	if err != nil {
		return nil, err
	}
	material, err := e.resolveMaterial(req.Material)
	if err != nil {
		return nil, err
	}

	multiplier := 1.0
	if material != nil {
		s.MaterialID = material.ID
		s.MaterialName = material.Name
		multiplier = material.PriceMultiplier
		if multiplier <= 0 {
			multiplier = 1.0
		}
	}

	if signType != nil {
		s.SignTypeID = signType.ID
		s.SignTypeName = signType.Name

		sample, err := e.decidedSample(signType.ID, s.MaterialID, area)
		if err != nil {
			return nil, err
		}
		if len(sample) >= minSampleSize {
			e.priceFromHistory(s, sample, multiplier)
			s.finish()
			return s, nil
		}

		if signType.BaseRatePerSqFt > 0 {
			price := area * signType.BaseRatePerSqFt * multiplier
			s.PriceSource = SourceBaseFormula
			if signType.MinPrice > 0 && price < signType.MinPrice {
				price = signType.MinPrice
				s.PriceSource = SourceMinimum
			}
			s.UnitPrice = price
			s.Confidence = ConfidenceLow
			s.finish()
			return s, nil
		}
	}

	// No history and no catalog rate: generic fallback.
	s.UnitPrice = area * genericRatePerSqFt * multiplier
	s.PriceSource = SourceBaseFormula
	s.Confidence = ConfidenceLow
	s.finish()
	return s, nil
}

// decidedSample returns non-pending history entries whose area is within
// the tolerance band around the requested area.
func (e *Engine) decidedSample(signTypeID, materialID string, area float64) ([]*pricingdomain.HistoryEntry, error) {
	entries, err := e.history.FindDecided(signTypeID, materialID)
	if err != nil {
		return nil, err
	}

	lo := area * (1 - areaTolerance)
	hi := area * (1 + areaTolerance)

	var sample []*pricingdomain.HistoryEntry
	for _, entry := range entries {
		if entry.AreaSqFt >= lo && entry.AreaSqFt <= hi && entry.AreaSqFt > 0 {
			sample = append(sample, entry)
		}
	}
	return sample, nil
}

func (e *Engine) priceFromHistory(s *Suggestion, sample []*pricingdomain.HistoryEntry, multiplier float64) {
	var rateSum float64
	var wins, losses int
	for _, entry := range sample {
		rateSum += entry.UnitPrice / entry.AreaSqFt
		switch entry.Outcome {
		case pricingdomain.OutcomeWon:
			wins++
		case pricingdomain.OutcomeLost:
			losses++
		}
	}

	meanRate := rateSum / float64(len(sample))
	winRate := 0.0
	if wins+losses > 0 {
		winRate = float64(wins) / float64(wins+losses)
	}

	price := s.AreaSqFt * meanRate
	if winRate > winRateHigh {
		price *= 1.10
	} else if winRate < winRateLow {
		price *= 0.90
	}
	price *= multiplier

	s.UnitPrice = price
	s.PriceSource = SourceHistorical
	s.SampleSize = len(sample)
	s.WinRate = winRate
	if len(sample) >= highSampleSize {
		s.Confidence = ConfidenceHigh
	} else {
		s.Confidence = ConfidenceMedium
	}
}

// finish rounds the unit price to the nearest dollar and totals the line.
func (s *Suggestion) finish() {
	s.UnitPrice = math.Round(s.UnitPrice)
	s.TotalPrice = s.UnitPrice * float64(s.Quantity)
}

func (e *Engine) resolveSignType(name string) (*pricingdomain.SignType, error) {
	if name == "" {
		return nil, nil
	}
	types, err := e.catalog.ListSignTypes()
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		if fuzzy.NameMatches(name, t.Name) {
			return t, nil
		}
	}
	return nil, nil
}

func (e *Engine) resolveMaterial(name string) (*pricingdomain.Material, error) {
	if name == "" {
		return nil, nil
	}
	materials, err := e.catalog.ListMaterials()
	if err != nil {
		return nil, err
	}
	for _, m := range materials {
		if fuzzy.NameMatches(name, m.Name) {
			return m, nil
		}
	}
	return nil, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
