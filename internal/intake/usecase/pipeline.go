package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"

	approvalusecase "signdesk-backend/internal/approval/usecase"
	contactrepository "signdesk-backend/internal/contact/repository"
	estimatedomain "signdesk-backend/internal/estimate/domain"
	estimateusecase "signdesk-backend/internal/estimate/usecase"
	"signdesk-backend/internal/intake/domain"
	intakerepository "signdesk-backend/internal/intake/repository"
	jobdomain "signdesk-backend/internal/job/domain"
	jobusecase "signdesk-backend/internal/job/usecase"
	pricingusecase "signdesk-backend/internal/pricing/usecase"
	"signdesk-backend/pkg/ai"
	"signdesk-backend/pkg/dedup"
	"signdesk-backend/pkg/fuzzy"
	"signdesk-backend/pkg/gmail"
	"signdesk-backend/pkg/telegram"
)

// matchThreshold is the minimum matcher confidence for an automatic status
// reply. Below it, or with more than one candidate above it, the operator
// resolves the ambiguity instead.
const matchThreshold = 0.5

// MailSource is the slice of the Gmail client the pipeline consumes.
type MailSource interface {
	FetchMessage(ctx context.Context, messageID string) (*gmail.Message, error)
	ListNewMessageIDs(ctx context.Context, startHistoryID uint64) ([]string, uint64, error)
}

// Notifier posts plain operator notices.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboard) (int64, error)
}

// Approvals is the slice of the approval workflow the pipeline hands off to.
type Approvals interface {
	NotifyEstimate(ctx context.Context, chatID int64, est *estimatedomain.Estimate, customerName string) error
	ProposeReply(ctx context.Context, chatID int64, reply *approvalusecase.StagedReply) error
}

// Pipeline turns a mailbox change notification into classified, routed work:
// dedup gate, fetch, allow-list check, AI classification, intent dispatch.
type Pipeline struct {
	dedup      dedup.Store
	mail       MailSource
	contacts   contactrepository.ContactRepository
	classifier ai.ClassifierService
	engine     *pricingusecase.Engine
	estimates  *estimateusecase.EstimateUsecase
	matcher    *jobusecase.Matcher
	approvals  Approvals
	notifier   Notifier
	sync       intakerepository.SyncStateRepository
	chatID     int64
}

func NewPipeline(
	dedupStore dedup.Store,
	mail MailSource,
	contacts contactrepository.ContactRepository,
	classifier ai.ClassifierService,
	engine *pricingusecase.Engine,
	estimates *estimateusecase.EstimateUsecase,
	matcher *jobusecase.Matcher,
	approvals Approvals,
	notifier Notifier,
	sync intakerepository.SyncStateRepository,
	chatID int64,
) *Pipeline {
	return &Pipeline{
		dedup:      dedupStore,
		mail:       mail,
		contacts:   contacts,
		classifier: classifier,
		engine:     engine,
		estimates:  estimates,
		matcher:    matcher,
		approvals:  approvals,
		notifier:   notifier,
		sync:       sync,
		chatID:     chatID,
	}
}

// ProcessHistoryUpdate resolves a mailbox change ping into concrete message
// IDs via the stored history cursor and runs each through the pipeline. The
// first ping for an address only establishes the cursor.
func (p *Pipeline) ProcessHistoryUpdate(ctx context.Context, emailAddress string, historyID uint64) error {
	stored, err := p.sync.GetHistoryID(emailAddress)
	if err != nil {
		return fmt.Errorf("failed to load history cursor: %w", err)
	}
	if stored == 0 {
		log.Printf("[Intake] Establishing history cursor for %s at %d", emailAddress, historyID)
		return p.sync.SaveHistoryID(emailAddress, historyID)
	}

	ids, newCursor, err := p.mail.ListNewMessageIDs(ctx, stored)
	if err != nil {
		p.notify(ctx, fmt.Sprintf("⚠️ Failed to list new mail: %v", err))
		return err
	}

	for _, id := range ids {
		if err := p.ProcessMessage(ctx, id); err != nil {
			log.Printf("[Intake] Error processing message %s: %v", id, err)
		}
	}

	if newCursor > stored {
		if err := p.sync.SaveHistoryID(emailAddress, newCursor); err != nil {
			log.Printf("[Intake] Error saving history cursor: %v", err)
		}
	}
	return nil
}

// ProcessMessage runs one email through the full pipeline. Failures are
// reported and the event dropped; there are no retries.
func (p *Pipeline) ProcessMessage(ctx context.Context, messageID string) error {
	ok, err := p.dedup.ShouldProcess(ctx, messageID)
	if err != nil {
		log.Printf("[Intake] Dedup check failed for %s, processing anyway: %v", messageID, err)
	} else if !ok {
		log.Printf("[Intake] Skipping duplicate message %s", messageID)
		return nil
	}
	if err := p.dedup.MarkProcessed(ctx, messageID); err != nil {
		log.Printf("[Intake] Error marking %s processed: %v", messageID, err)
	}

	raw, err := p.mail.FetchMessage(ctx, messageID)
	if err != nil {
		p.notify(ctx, fmt.Sprintf("⚠️ Failed to fetch message %s: %v", messageID, err))
		return err
	}
	msg := toInbound(raw)

	contact, err := p.contacts.FindByEmail(msg.FromEmail)
	if err != nil {
		return fmt.Errorf("contact lookup failed: %w", err)
	}
	if contact == nil || !contact.Active {
		log.Printf("[Intake] Ignoring message from unknown or inactive sender %s", msg.FromEmail)
		return nil
	}

	cls, err := p.classifier.ClassifyEmail(ctx, msg.Subject, msg.Body)
	if err != nil {
		p.notify(ctx, fmt.Sprintf("⚠️ Could not classify email from %s (%q): %v", contact.Name, msg.Subject, err))
		return err
	}

	log.Printf("[Intake] Message %s from %s classified as %s (%d items)",
		messageID, contact.Name, cls.Intent, len(cls.Items))
	p.dispatch(ctx, msg, contact.ID, contact.Name, cls)
	return nil
}

// toInbound detaches the pipeline from the Gmail wire shape; everything past
// the fetch works on the domain message.
func toInbound(m *gmail.Message) *domain.InboundMessage {
	return &domain.InboundMessage{
		MessageID:   m.ID,
		ThreadID:    m.ThreadID,
		FromEmail:   m.From,
		FromName:    m.FromName,
		Subject:     m.Subject,
		Body:        m.Body,
		RFC822MsgID: m.RFC822MsgID,
		ReceivedAt:  m.ReceivedAt,
	}
}

func (p *Pipeline) dispatch(ctx context.Context, msg *domain.InboundMessage, contactID, contactName string, cls *ai.Classification) {
	switch cls.Intent {
	case ai.IntentNewRequest:
		p.handleNewRequest(ctx, msg, contactID, contactName, cls)
	case ai.IntentStatusInquiry:
		p.handleStatusInquiry(ctx, msg, contactID, contactName, cls)
	case ai.IntentReorder:
		p.handleReorder(ctx, msg, contactID, contactName, cls)
	case ai.IntentApproval:
		// Notify-only. Auto-advancing the job stage from this signal is
		// deliberately not implemented.
		p.notify(ctx, fmt.Sprintf("👍 %s appears to approve (%q). Review the job stage manually.", contactName, msg.Subject))
	case ai.IntentGeneral:
		// Silent. Routine mail should not page the operator.
	default:
		log.Printf("[Intake] Unknown intent tag %q, dropping", cls.Intent)
	}
}

func (p *Pipeline) handleNewRequest(ctx context.Context, msg *domain.InboundMessage, contactID, contactName string, cls *ai.Classification) {
	if len(cls.Items) == 0 {
		p.notify(ctx, fmt.Sprintf("📬 New request from %s: %q\n\n%s\n\nNo line items could be extracted; handle manually.",
			contactName, msg.Subject, excerpt(msg.Body, 400)))
		return
	}

	suggestions := make([]pricingusecase.Suggestion, 0, len(cls.Items))
	descriptions := make([]string, 0, len(cls.Items))
	for _, item := range cls.Items {
		s, err := p.engine.Suggest(pricingusecase.Request{
			SignType: item.SignType,
			Material: item.Material,
			Size:     item.Size,
			Quantity: item.Quantity,
		})
		if err != nil {
			p.notify(ctx, fmt.Sprintf("⚠️ Could not price %q for %s: %v", item.Description, contactName, err))
			return
		}
		suggestions = append(suggestions, *s)
		descriptions = append(descriptions, item.Description)
	}

	est, err := p.estimates.BuildDraft(contactID, msg.MessageID, msg.ThreadID, suggestions, descriptions)
	if err != nil {
		p.notify(ctx, fmt.Sprintf("⚠️ Could not create estimate for %s: %v", contactName, err))
		return
	}
	if err := p.approvals.NotifyEstimate(ctx, p.chatID, est, contactName); err != nil {
		log.Printf("[Intake] Error posting estimate proposal: %v", err)
	}
}

func (p *Pipeline) handleStatusInquiry(ctx context.Context, msg *domain.InboundMessage, contactID, contactName string, cls *ai.Classification) {
	keywords := cls.Keywords
	if cls.JobReference != "" {
		keywords = append(keywords, cls.JobReference)
	}

	matches, err := p.matcher.TopMatches(contactID, keywords, 3)
	if err != nil {
		p.notify(ctx, fmt.Sprintf("⚠️ Job matching failed for %s: %v", contactName, err))
		return
	}

	var strong []*jobdomain.Match
	for _, m := range matches {
		if m.Confidence >= matchThreshold {
			strong = append(strong, m)
		}
	}

	if len(strong) != 1 {
		var b strings.Builder
		fmt.Fprintf(&b, "❓ %s asked for a status (%q) but I couldn't pin down one job.", contactName, msg.Subject)
		if len(matches) > 0 {
			b.WriteString("\nCandidates:")
			for _, m := range matches {
				fmt.Fprintf(&b, "\n  %.0f%%  %s (%s)", m.Confidence*100, excerpt(m.Job.Description, 50), m.Job.Stage)
			}
		}
		p.notify(ctx, b.String())
		return
	}

	match := strong[0]
	eta := ""
	if match.Job.ETA != nil {
		eta = match.Job.ETA.Format("January 2")
	}
	body, err := p.classifier.DraftReply(ctx, ai.DraftContext{
		Purpose:        "status_reply",
		CustomerName:   contactName,
		Subject:        msg.Subject,
		OriginalBody:   msg.Body,
		JobDescription: match.Job.Description,
		JobStage:       string(match.Job.Stage),
		ETA:            eta,
	})
	if err != nil {
		p.notify(ctx, fmt.Sprintf("⚠️ Could not draft a status reply for %s: %v", contactName, err))
		return
	}

	if err := p.approvals.ProposeReply(ctx, p.chatID, &approvalusecase.StagedReply{
		Kind:      "status_reply",
		To:        msg.FromEmail,
		Subject:   msg.Subject,
		Body:      body,
		ThreadID:  msg.ThreadID,
		InReplyTo: msg.RFC822MsgID,
	}); err != nil {
		log.Printf("[Intake] Error proposing status reply: %v", err)
	}
}

func (p *Pipeline) handleReorder(ctx context.Context, msg *domain.InboundMessage, contactID, contactName string, cls *ai.Classification) {
	won, err := p.estimates.FindWonByContact(contactID)
	if err != nil {
		p.notify(ctx, fmt.Sprintf("⚠️ Could not look up past orders for %s: %v", contactName, err))
		return
	}

	best := bestReorderCandidate(won, cls.Keywords)
	if best == nil {
		p.notify(ctx, fmt.Sprintf("🔁 %s wants to reorder (%q) but no past won estimate matches. Handle manually.",
			contactName, msg.Subject))
		return
	}

	var lines strings.Builder
	for _, item := range best.Items {
		fmt.Fprintf(&lines, "%s × %d @ $%.2f\n", item.Description, item.Quantity, item.UnitPrice)
	}

	body, err := p.classifier.DraftReply(ctx, ai.DraftContext{
		Purpose:        "reorder_confirmation",
		CustomerName:   contactName,
		Subject:        msg.Subject,
		OriginalBody:   msg.Body,
		JobDescription: jobSummary(best),
		Notes:          fmt.Sprintf("Previous order:\n%sTotal: $%.2f", lines.String(), best.Total),
	})
	if err != nil {
		p.notify(ctx, fmt.Sprintf("⚠️ Could not draft a reorder confirmation for %s: %v", contactName, err))
		return
	}

	if err := p.approvals.ProposeReply(ctx, p.chatID, &approvalusecase.StagedReply{
		Kind:      "reorder_confirmation",
		To:        msg.FromEmail,
		Subject:   msg.Subject,
		Body:      body,
		ThreadID:  msg.ThreadID,
		InReplyTo: msg.RFC822MsgID,
	}); err != nil {
		log.Printf("[Intake] Error proposing reorder confirmation: %v", err)
	}
}

// bestReorderCandidate scores won estimates by keyword containment over their
// item descriptions, the same containment-plus-length approach the job
// matcher uses. The input is ordered most recent first, so keeping strict
// improvement breaks ties by recency.
func bestReorderCandidate(won []estimatedomain.Estimate, keywords []string) *estimatedomain.Estimate {
	maxScore := 0.0
	for _, kw := range keywords {
		maxScore += float64(len(fuzzy.Normalize(kw))) / 10.0
	}
	if maxScore == 0 {
		return nil
	}

	var best *estimatedomain.Estimate
	bestScore := 0.0
	for i := range won {
		descriptions := jobSummary(&won[i])
		raw := 0.0
		for _, kw := range keywords {
			if fuzzy.ContainsNormalized(descriptions, kw) {
				raw += float64(len(fuzzy.Normalize(kw))) / 10.0
			}
		}
		score := raw / maxScore
		if score > bestScore {
			bestScore = score
			best = &won[i]
		}
	}
	return best
}

func jobSummary(e *estimatedomain.Estimate) string {
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		parts = append(parts, item.Description)
	}
	return strings.Join(parts, "; ")
}

func (p *Pipeline) notify(ctx context.Context, text string) {
	if _, err := p.notifier.SendMessage(ctx, p.chatID, text, nil); err != nil {
		log.Printf("[Intake] Error notifying operator: %v", err)
	}
}

func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
