package usecase

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"signdesk-backend/internal/estimate/domain"
	"signdesk-backend/internal/estimate/repository"
	jobdomain "signdesk-backend/internal/job/domain"
	jobrepository "signdesk-backend/internal/job/repository"
	pricingdomain "signdesk-backend/internal/pricing/domain"
	pricingrepository "signdesk-backend/internal/pricing/repository"
	pricingusecase "signdesk-backend/internal/pricing/usecase"
)

var (
	ErrEstimateNotFound = errors.New("estimate not found")
	ErrItemNotFound     = errors.New("estimate item not found")
	ErrInvalidStatus    = errors.New("operation not valid for estimate status")
)

// EstimateUsecase owns the estimate lifecycle: draft creation from pricing
// suggestions, edits, and the sent/won/lost/expired transitions together
// with their side effects (job creation, pricing history outcomes).
type EstimateUsecase struct {
	estimates repository.EstimateRepository
	jobs      jobrepository.JobRepository
	history   pricingrepository.HistoryRepository
}

func NewEstimateUsecase(
	estimates repository.EstimateRepository,
	jobs jobrepository.JobRepository,
	history pricingrepository.HistoryRepository,
) *EstimateUsecase {
	return &EstimateUsecase{estimates: estimates, jobs: jobs, history: history}
}

// BuildDraft turns priced suggestions into a persisted draft estimate.
// Descriptions come from the customer's own wording when available so the
// operator recognizes the line items.
func (u *EstimateUsecase) BuildDraft(contactID, messageID, threadID string, suggestions []pricingusecase.Suggestion, descriptions []string) (*domain.Estimate, error) {
	if len(suggestions) == 0 {
		return nil, errors.New("cannot build estimate with no items")
	}

	estimate := &domain.Estimate{
		ContactID: contactID,
		MessageID: messageID,
		ThreadID:  threadID,
		Status:    domain.StatusDraft,
	}
	for i, s := range suggestions {
		desc := fmt.Sprintf("%s, %s", s.SignTypeName, s.MaterialName)
		if i < len(descriptions) && strings.TrimSpace(descriptions[i]) != "" {
			desc = strings.TrimSpace(descriptions[i])
		}
		estimate.Items = append(estimate.Items, domain.EstimateItem{
			Description: desc,
			SignTypeID:  s.SignTypeID,
			MaterialID:  s.MaterialID,
			WidthIn:     s.WidthIn,
			HeightIn:    s.HeightIn,
			AreaSqFt:    s.AreaSqFt,
			Quantity:    s.Quantity,
			UnitPrice:   s.UnitPrice,
			Confidence:  s.Confidence,
			PriceSource: s.PriceSource,
			SampleSize:  s.SampleSize,
			WinRate:     s.WinRate,
		})
	}
	estimate.RecomputeTotals()

	if err := u.estimates.Create(estimate); err != nil {
		return nil, fmt.Errorf("failed to create estimate: %w", err)
	}
	return estimate, nil
}

func (u *EstimateUsecase) GetByID(id string) (*domain.Estimate, error) {
	estimate, err := u.estimates.FindByID(id)
	if err != nil {
		return nil, err
	}
	if estimate == nil {
		return nil, ErrEstimateNotFound
	}
	return estimate, nil
}

// UpdateItemPrice sets a new unit price on one line and recomputes totals.
func (u *EstimateUsecase) UpdateItemPrice(estimateID, itemID string, price float64) (*domain.Estimate, error) {
	if price < 0 {
		return nil, errors.New("price cannot be negative")
	}
	return u.mutateItem(estimateID, itemID, func(item *domain.EstimateItem) {
		item.UnitPrice = price
	})
}

// UpdateItemQuantity sets a new quantity on one line and recomputes totals.
func (u *EstimateUsecase) UpdateItemQuantity(estimateID, itemID string, quantity int) (*domain.Estimate, error) {
	if quantity < 1 {
		return nil, errors.New("quantity must be at least 1")
	}
	return u.mutateItem(estimateID, itemID, func(item *domain.EstimateItem) {
		item.Quantity = quantity
	})
}

// SetTurnaround sets the promised turnaround in days.
func (u *EstimateUsecase) SetTurnaround(estimateID string, days int) (*domain.Estimate, error) {
	if days < 1 {
		return nil, errors.New("turnaround must be at least 1 day")
	}
	estimate, err := u.editable(estimateID)
	if err != nil {
		return nil, err
	}
	estimate.TurnaroundDays = days
	if err := u.estimates.Update(estimate); err != nil {
		return nil, err
	}
	return estimate, nil
}

// MarkSent records the QuickBooks identifiers and moves the estimate to sent.
// Pending pricing-history entries are appended for every line so future
// suggestions can learn from this quote once it is decided.
func (u *EstimateUsecase) MarkSent(estimateID, quickbooksID, docNumber string) (*domain.Estimate, error) {
	estimate, err := u.GetByID(estimateID)
	if err != nil {
		return nil, err
	}
	if estimate.Status != domain.StatusDraft {
		return nil, ErrInvalidStatus
	}

	estimate.Status = domain.StatusSent
	estimate.QuickBooksID = quickbooksID
	estimate.QuickBooksDocNumber = docNumber
	if err := u.estimates.Update(estimate); err != nil {
		return nil, err
	}

	for _, item := range estimate.Items {
		entry := &pricingdomain.HistoryEntry{
			SignTypeID:     item.SignTypeID,
			MaterialID:     item.MaterialID,
			EstimateItemID: item.ID,
			Description:    item.Description,
			AreaSqFt:       item.AreaSqFt,
			UnitPrice:      item.UnitPrice,
			Outcome:        pricingdomain.OutcomePending,
		}
		if err := u.history.Create(entry); err != nil {
			log.Printf("[Estimate] Error recording history for item %s: %v", item.ID, err)
		}
	}
	return estimate, nil
}

// MarkWon moves a sent estimate to won, stamps the pricing history and opens
// a job at the pending stage. Returns the created job.
func (u *EstimateUsecase) MarkWon(estimateID string) (*domain.Estimate, *jobdomain.Job, error) {
	estimate, err := u.GetByID(estimateID)
	if err != nil {
		return nil, nil, err
	}
	if estimate.Status != domain.StatusSent {
		return nil, nil, ErrInvalidStatus
	}

	estimate.Status = domain.StatusWon
	if err := u.estimates.Update(estimate); err != nil {
		return nil, nil, err
	}

	if err := u.history.SetOutcomeByEstimateItemIDs(itemIDs(estimate), pricingdomain.OutcomeWon); err != nil {
		log.Printf("[Estimate] Error stamping won outcomes for estimate %s: %v", estimate.ID, err)
	}

	job := &jobdomain.Job{
		ContactID:   estimate.ContactID,
		EstimateID:  estimate.ID,
		Description: jobDescription(estimate),
		Stage:       jobdomain.StagePending,
		Total:       estimate.Total,
	}
	if err := u.jobs.Create(job); err != nil {
		return nil, nil, fmt.Errorf("estimate marked won but job creation failed: %w", err)
	}
	return estimate, job, nil
}

// MarkLost moves a sent estimate to lost and stamps the pricing history.
func (u *EstimateUsecase) MarkLost(estimateID string) (*domain.Estimate, error) {
	estimate, err := u.GetByID(estimateID)
	if err != nil {
		return nil, err
	}
	if estimate.Status != domain.StatusSent {
		return nil, ErrInvalidStatus
	}

	estimate.Status = domain.StatusLost
	if err := u.estimates.Update(estimate); err != nil {
		return nil, err
	}
	if err := u.history.SetOutcomeByEstimateItemIDs(itemIDs(estimate), pricingdomain.OutcomeLost); err != nil {
		log.Printf("[Estimate] Error stamping lost outcomes for estimate %s: %v", estimate.ID, err)
	}
	return estimate, nil
}

// MarkExpired rejects a draft. Nothing else changes.
func (u *EstimateUsecase) MarkExpired(estimateID string) (*domain.Estimate, error) {
	estimate, err := u.GetByID(estimateID)
	if err != nil {
		return nil, err
	}
	if estimate.Status != domain.StatusDraft {
		return nil, ErrInvalidStatus
	}
	estimate.Status = domain.StatusExpired
	if err := u.estimates.Update(estimate); err != nil {
		return nil, err
	}
	return estimate, nil
}

// FindWonByContact lists a contact's won estimates, most recent first.
func (u *EstimateUsecase) FindWonByContact(contactID string) ([]domain.Estimate, error) {
	return u.estimates.FindWonByContact(contactID)
}

func (u *EstimateUsecase) editable(estimateID string) (*domain.Estimate, error) {
	estimate, err := u.GetByID(estimateID)
	if err != nil {
		return nil, err
	}
	if estimate.Status != domain.StatusDraft {
		return nil, ErrInvalidStatus
	}
	return estimate, nil
}

func (u *EstimateUsecase) mutateItem(estimateID, itemID string, mutate func(*domain.EstimateItem)) (*domain.Estimate, error) {
	estimate, err := u.editable(estimateID)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range estimate.Items {
		if estimate.Items[i].ID == itemID {
			mutate(&estimate.Items[i])
			found = true
			break
		}
	}
	if !found {
		return nil, ErrItemNotFound
	}
	estimate.RecomputeTotals()
	if err := u.estimates.Update(estimate); err != nil {
		return nil, err
	}
	return estimate, nil
}

func itemIDs(e *domain.Estimate) []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func jobDescription(e *domain.Estimate) string {
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		parts = append(parts, item.Description)
	}
	return strings.Join(parts, "; ")
}
