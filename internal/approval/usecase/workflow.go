package usecase

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	contactrepository "signdesk-backend/internal/contact/repository"
	estimatedomain "signdesk-backend/internal/estimate/domain"
	estimateusecase "signdesk-backend/internal/estimate/usecase"
	jobdomain "signdesk-backend/internal/job/domain"
	jobrepository "signdesk-backend/internal/job/repository"
	"signdesk-backend/pkg/ai"
	"signdesk-backend/pkg/gmail"
	"signdesk-backend/pkg/quickbooks"
	"signdesk-backend/pkg/telegram"
)

// Notifier is the operator chat surface.
type Notifier interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboard) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *telegram.InlineKeyboard) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string) error
}

// Mailer sends customer-facing email.
type Mailer interface {
	SendReply(ctx context.Context, to, subject, body, threadID, inReplyTo string, attachments []gmail.Attachment) error
}

// Accounting is the QuickBooks surface the workflow needs.
type Accounting interface {
	FindCustomerByName(ctx context.Context, name string) (*quickbooks.Customer, error)
	CreateEstimate(ctx context.Context, customerID string, lines []quickbooks.Line) (*quickbooks.EstimateRef, error)
	CreateInvoiceFromEstimate(ctx context.Context, customerID, estimateID string, lines []quickbooks.Line) (*quickbooks.InvoiceRef, error)
	FetchInvoicePDF(ctx context.Context, invoiceID string) ([]byte, error)
}

// Drafter writes customer-facing email text.
type Drafter interface {
	DraftReply(ctx context.Context, d ai.DraftContext) (string, error)
}

// Workflow drives the estimate approval conversation in the operator chat:
// inline-keyboard callbacks, free-text edit inputs, staged outbound drafts
// and the slash commands.
type Workflow struct {
	estimates *estimateusecase.EstimateUsecase
	contacts  contactrepository.ContactRepository
	jobs      jobrepository.JobRepository
	account   Accounting
	mailer    Mailer
	notifier  Notifier
	drafter   Drafter
	sessions  *sessionStore
	staged    *stagedStore
}

func NewWorkflow(
	estimates *estimateusecase.EstimateUsecase,
	contacts contactrepository.ContactRepository,
	jobs jobrepository.JobRepository,
	account Accounting,
	mailer Mailer,
	notifier Notifier,
	drafter Drafter,
) *Workflow {
	return &Workflow{
		estimates: estimates,
		contacts:  contacts,
		jobs:      jobs,
		account:   account,
		mailer:    mailer,
		notifier:  notifier,
		drafter:   drafter,
		sessions:  newSessionStore(),
		staged:    newStagedStore(),
	}
}

// NotifyEstimate posts a new draft estimate to the operator chat with the
// approve / edit / reject keyboard.
func (w *Workflow) NotifyEstimate(ctx context.Context, chatID int64, est *estimatedomain.Estimate, customerName string) error {
	text := fmt.Sprintf("📋 New estimate for %s\n\n%s", customerName, formatEstimate(est))
	_, err := w.notifier.SendMessage(ctx, chatID, text, estimateKeyboard(est.ID))
	return err
}

// ProposeReply stages an outbound email draft and asks the operator what to
// do with it. A previously staged draft for the chat is overwritten.
func (w *Workflow) ProposeReply(ctx context.Context, chatID int64, reply *StagedReply) error {
	w.staged.PutReply(chatID, reply)
	label := "Status reply"
	if reply.Kind == "reorder_confirmation" {
		label = "Reorder confirmation"
	}
	text := fmt.Sprintf("✉️ %s draft for %s:\n\n%s", label, reply.To, reply.Body)
	_, err := w.notifier.SendMessage(ctx, chatID, text, &telegram.InlineKeyboard{
		InlineKeyboard: [][]telegram.Button{
			telegram.Row(
				telegram.Button{Text: "Send", CallbackData: "reply_send"},
				telegram.Button{Text: "Edit", CallbackData: "reply_edit"},
				telegram.Button{Text: "Cancel", CallbackData: "reply_cancel"},
			),
		},
	})
	return err
}

// HandleCallback routes an inline-keyboard press. Callback data is a
// colon-delimited verb plus identifiers.
func (w *Workflow) HandleCallback(ctx context.Context, chatID int64, callbackID, data string) {
	if callbackID != "" {
		if err := w.notifier.AnswerCallbackQuery(ctx, callbackID, ""); err != nil {
			log.Printf("[Approval] Error answering callback: %v", err)
		}
	}

	parts := strings.Split(data, ":")
	switch parts[0] {
	case "approve":
		if len(parts) == 2 {
			w.approve(ctx, chatID, parts[1])
		}
	case "reject":
		if len(parts) == 2 {
			w.reject(ctx, chatID, parts[1])
		}
	case "edit":
		if len(parts) == 2 {
			w.startEdit(ctx, chatID, parts[1])
		}
	case "item":
		if len(parts) == 3 {
			w.selectItem(ctx, chatID, parts[1], parts[2])
		}
	case "field":
		if len(parts) == 4 {
			w.selectField(ctx, chatID, parts[1], parts[2], parts[3])
		}
	case "turnaround":
		if len(parts) == 2 {
			w.sessions.Put(chatID, &EditSession{State: StateAwaitingTurnaroundInput, EstimateID: parts[1]})
			w.say(ctx, chatID, "Enter turnaround in days:")
		}
	case "won":
		if len(parts) == 2 {
			w.markWon(ctx, chatID, parts[1])
		}
	case "lost":
		if len(parts) == 2 {
			w.markLost(ctx, chatID, parts[1])
		}
	case "reply_send":
		w.sendStagedReply(ctx, chatID)
	case "reply_edit":
		w.editStagedReply(ctx, chatID)
	case "reply_cancel":
		w.staged.ClearReply(chatID)
		w.sessions.Clear(chatID)
		w.say(ctx, chatID, "Draft discarded.")
	case "completion_send":
		w.sendCompletion(ctx, chatID)
	case "completion_edit":
		w.editCompletion(ctx, chatID)
	case "completion_cancel":
		w.staged.ClearCompletion(chatID)
		w.sessions.Clear(chatID)
		w.say(ctx, chatID, "Completion email discarded. Invoice was still created in QuickBooks.")
	default:
		log.Printf("[Approval] Unknown callback action: %q", data)
	}
}

// HandleText routes operator free text: slash commands, or input the current
// session is waiting for.
func (w *Workflow) HandleText(ctx context.Context, chatID int64, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if strings.HasPrefix(text, "/") {
		w.handleCommand(ctx, chatID, text)
		return
	}

	session := w.sessions.Get(chatID)
	if session == nil {
		w.say(ctx, chatID, "Nothing is waiting for input. Use the buttons, or /jobs, /stage, /eta, /cancel.")
		return
	}

	switch session.State {
	case StateAwaitingPriceInput:
		price, err := strconv.ParseFloat(text, 64)
		if err != nil || price < 0 {
			w.say(ctx, chatID, "That doesn't look like a price. Enter a number like 450 or 62.50:")
			return
		}
		est, err := w.estimates.UpdateItemPrice(session.EstimateID, session.ItemID, price)
		w.finishEdit(ctx, chatID, est, err)
	case StateAwaitingQuantityInput:
		qty, err := strconv.Atoi(text)
		if err != nil || qty < 1 {
			w.say(ctx, chatID, "Quantity must be a whole number of at least 1. Try again:")
			return
		}
		est, err := w.estimates.UpdateItemQuantity(session.EstimateID, session.ItemID, qty)
		w.finishEdit(ctx, chatID, est, err)
	case StateAwaitingTurnaroundInput:
		days, err := strconv.Atoi(text)
		if err != nil || days < 1 {
			w.say(ctx, chatID, "Turnaround must be a whole number of days. Try again:")
			return
		}
		est, err := w.estimates.SetTurnaround(session.EstimateID, days)
		w.finishEdit(ctx, chatID, est, err)
	case StateAwaitingStatusReplyEdit:
		reply := w.staged.GetReply(chatID)
		if reply == nil {
			w.sessions.Clear(chatID)
			w.say(ctx, chatID, "No draft to edit anymore.")
			return
		}
		reply.Body = text
		w.staged.PutReply(chatID, reply)
		w.sessions.Clear(chatID)
		if err := w.ProposeReply(ctx, chatID, reply); err != nil {
			log.Printf("[Approval] Error re-proposing reply: %v", err)
		}
	case StateAwaitingCompletionEmailEdit:
		completion := w.staged.GetCompletion(chatID)
		if completion == nil {
			w.sessions.Clear(chatID)
			w.say(ctx, chatID, "No completion email to edit anymore.")
			return
		}
		completion.Body = text
		w.staged.PutCompletion(chatID, completion)
		w.sessions.Clear(chatID)
		w.proposeCompletion(ctx, chatID, completion)
	default:
		w.say(ctx, chatID, "Pick an option from the buttons first.")
	}
}

func (w *Workflow) approve(ctx context.Context, chatID int64, estimateID string) {
	est, err := w.estimates.GetByID(estimateID)
	if err != nil {
		w.say(ctx, chatID, fmt.Sprintf("Cannot approve: %v", err))
		return
	}
	if est.Status != estimatedomain.StatusDraft {
		w.say(ctx, chatID, fmt.Sprintf("Estimate is already %s.", est.Status))
		return
	}

	contact, err := w.contacts.FindByID(est.ContactID)
	if err != nil || contact == nil {
		w.say(ctx, chatID, "Cannot approve: contact not found.")
		return
	}

	customer, err := w.account.FindCustomerByName(ctx, contact.Name)
	if err != nil {
		w.say(ctx, chatID, fmt.Sprintf("QuickBooks lookup failed: %v", err))
		return
	}
	if customer == nil {
		w.say(ctx, chatID, fmt.Sprintf("No QuickBooks customer named %q. Create them first, then approve again.", contact.Name))
		return
	}

	ref, err := w.account.CreateEstimate(ctx, customer.ID, quickbooksLines(est))
	if err != nil {
		w.say(ctx, chatID, fmt.Sprintf("QuickBooks estimate creation failed: %v", err))
		return
	}

	sent, err := w.estimates.MarkSent(est.ID, ref.ID, ref.DocNumber)
	if err != nil {
		w.say(ctx, chatID, fmt.Sprintf("QuickBooks estimate %s created but local update failed: %v", ref.DocNumber, err))
		return
	}

	text := fmt.Sprintf("✅ Estimate #%s approved and synced to QuickBooks ($%.2f).\nMark the outcome when the customer decides:", ref.DocNumber, sent.Total)
	if _, err := w.notifier.SendMessage(ctx, chatID, text, &telegram.InlineKeyboard{
		InlineKeyboard: [][]telegram.Button{
			telegram.Row(
				telegram.Button{Text: "Won 🎉", CallbackData: "won:" + sent.ID},
				telegram.Button{Text: "Lost", CallbackData: "lost:" + sent.ID},
			),
		},
	}); err != nil {
		log.Printf("[Approval] Error sending approval confirmation: %v", err)
	}
}

func (w *Workflow) reject(ctx context.Context, chatID int64, estimateID string) {
	if _, err := w.estimates.MarkExpired(estimateID); err != nil {
		w.say(ctx, chatID, fmt.Sprintf("Cannot reject: %v", err))
		return
	}
	w.sessions.Clear(chatID)
	w.say(ctx, chatID, "Estimate rejected.")
}

func (w *Workflow) markWon(ctx context.Context, chatID int64, estimateID string) {
	_, job, err := w.estimates.MarkWon(estimateID)
	if err != nil {
		w.say(ctx, chatID, fmt.Sprintf("Cannot mark won: %v", err))
		return
	}
	w.say(ctx, chatID, fmt.Sprintf("🎉 Marked won. Job %s created at stage %s.\nUse /stage %s <stage> to move it along.",
		shortID(job.ID), job.Stage, shortID(job.ID)))
}

func (w *Workflow) markLost(ctx context.Context, chatID int64, estimateID string) {
	if _, err := w.estimates.MarkLost(estimateID); err != nil {
		w.say(ctx, chatID, fmt.Sprintf("Cannot mark lost: %v", err))
		return
	}
	w.say(ctx, chatID, "Marked lost. Pricing history updated.")
}

func (w *Workflow) startEdit(ctx context.Context, chatID int64, estimateID string) {
	est, err := w.estimates.GetByID(estimateID)
	if err != nil {
		w.say(ctx, chatID, fmt.Sprintf("Cannot edit: %v", err))
		return
	}
	if est.Status != estimatedomain.StatusDraft {
		w.say(ctx, chatID, fmt.Sprintf("Estimate is already %s and can no longer be edited.", est.Status))
		return
	}

	w.sessions.Put(chatID, &EditSession{State: StateSelectingItem, EstimateID: est.ID})

	rows := make([][]telegram.Button, 0, len(est.Items)+1)
	for i, item := range est.Items {
		label := fmt.Sprintf("%d. %s ($%.2f × %d)", i+1, truncate(item.Description, 30), item.UnitPrice, item.Quantity)
		rows = append(rows, telegram.Row(telegram.Button{
			Text:         label,
			CallbackData: fmt.Sprintf("item:%s:%s", est.ID, item.ID),
		}))
	}
	rows = append(rows, telegram.Row(telegram.Button{
		Text:         "Turnaround",
		CallbackData: "turnaround:" + est.ID,
	}))

	if _, err := w.notifier.SendMessage(ctx, chatID, "What do you want to change?", &telegram.InlineKeyboard{InlineKeyboard: rows}); err != nil {
		log.Printf("[Approval] Error sending edit menu: %v", err)
	}
}

func (w *Workflow) selectItem(ctx context.Context, chatID int64, estimateID, itemID string) {
	w.sessions.Put(chatID, &EditSession{State: StateSelectingField, EstimateID: estimateID, ItemID: itemID})
	_, err := w.notifier.SendMessage(ctx, chatID, "Which field?", &telegram.InlineKeyboard{
		InlineKeyboard: [][]telegram.Button{
			telegram.Row(
				telegram.Button{Text: "Price", CallbackData: fmt.Sprintf("field:price:%s:%s", estimateID, itemID)},
				telegram.Button{Text: "Quantity", CallbackData: fmt.Sprintf("field:qty:%s:%s", estimateID, itemID)},
			),
		},
	})
	if err != nil {
		log.Printf("[Approval] Error sending field menu: %v", err)
	}
}

func (w *Workflow) selectField(ctx context.Context, chatID int64, field, estimateID, itemID string) {
	switch field {
	case "price":
		w.sessions.Put(chatID, &EditSession{State: StateAwaitingPriceInput, EstimateID: estimateID, ItemID: itemID})
		w.say(ctx, chatID, "Enter the new unit price:")
	case "qty":
		w.sessions.Put(chatID, &EditSession{State: StateAwaitingQuantityInput, EstimateID: estimateID, ItemID: itemID})
		w.say(ctx, chatID, "Enter the new quantity:")
	default:
		log.Printf("[Approval] Unknown field selector: %q", field)
	}
}

func (w *Workflow) finishEdit(ctx context.Context, chatID int64, est *estimatedomain.Estimate, err error) {
	if err != nil {
		w.sessions.Clear(chatID)
		w.say(ctx, chatID, fmt.Sprintf("Edit failed: %v", err))
		return
	}
	w.sessions.Clear(chatID)
	text := "Updated.\n\n" + formatEstimate(est)
	if _, err := w.notifier.SendMessage(ctx, chatID, text, estimateKeyboard(est.ID)); err != nil {
		log.Printf("[Approval] Error sending updated estimate: %v", err)
	}
}

func (w *Workflow) sendStagedReply(ctx context.Context, chatID int64) {
	reply := w.staged.GetReply(chatID)
	if reply == nil {
		w.say(ctx, chatID, "No draft staged.")
		return
	}
	err := w.mailer.SendReply(ctx, reply.To, reply.Subject, reply.Body, reply.ThreadID, reply.InReplyTo, nil)
	if err != nil {
		// Keep the draft so the operator can hit Send again.
		w.say(ctx, chatID, fmt.Sprintf("Send failed, draft kept: %v", err))
		return
	}
	w.staged.ClearReply(chatID)
	w.say(ctx, chatID, fmt.Sprintf("Sent to %s.", reply.To))
}

func (w *Workflow) editStagedReply(ctx context.Context, chatID int64) {
	if w.staged.GetReply(chatID) == nil {
		w.say(ctx, chatID, "No draft staged.")
		return
	}
	w.sessions.Put(chatID, &EditSession{State: StateAwaitingStatusReplyEdit})
	w.say(ctx, chatID, "Send the replacement text for the draft:")
}

// StartCompletion creates the QuickBooks invoice for a completed job and
// stages the AI-drafted completion email with the invoice PDF attached.
func (w *Workflow) StartCompletion(ctx context.Context, chatID int64, jobID string) {
	job, err := w.jobs.FindByID(jobID)
	if err != nil || job == nil {
		w.say(ctx, chatID, "Job not found.")
		return
	}
	if job.EstimateID == "" {
		w.say(ctx, chatID, "Job has no linked estimate; cannot build an invoice.")
		return
	}
	est, err := w.estimates.GetByID(job.EstimateID)
	if err != nil {
		w.say(ctx, chatID, fmt.Sprintf("Cannot load estimate: %v", err))
		return
	}
	contact, err := w.contacts.FindByID(job.ContactID)
	if err != nil || contact == nil {
		w.say(ctx, chatID, "Contact not found.")
		return
	}

	customer, err := w.account.FindCustomerByName(ctx, contact.Name)
	if err != nil || customer == nil {
		w.say(ctx, chatID, "QuickBooks customer not found; cannot invoice.")
		return
	}
	invoice, err := w.account.CreateInvoiceFromEstimate(ctx, customer.ID, est.QuickBooksID, quickbooksLines(est))
	if err != nil {
		w.say(ctx, chatID, fmt.Sprintf("Invoice creation failed: %v", err))
		return
	}
	pdf, err := w.account.FetchInvoicePDF(ctx, invoice.ID)
	if err != nil {
		log.Printf("[Approval] Error fetching invoice PDF: %v", err)
		w.say(ctx, chatID, "Invoice created but PDF download failed; send it from QuickBooks manually.")
		return
	}

	body, err := w.drafter.DraftReply(ctx, ai.DraftContext{
		Purpose:        "completion_email",
		CustomerName:   contact.Name,
		JobDescription: job.Description,
		JobStage:       string(job.Stage),
		Notes:          fmt.Sprintf("Invoice %s attached, total $%.2f", invoice.DocNumber, est.Total),
	})
	if err != nil {
		log.Printf("[Approval] Error drafting completion email: %v", err)
		body = fmt.Sprintf("Hi %s,\n\nYour signage order is complete. The invoice is attached.\n\nThank you,\nThe SignDesk Team", contact.Name)
	}

	completion := &CompletionData{
		JobID:     job.ID,
		InvoiceID: invoice.ID,
		To:        contact.Email,
		Subject:   "Your order is complete",
		Body:      body,
		ThreadID:  est.ThreadID,
		PDF:       pdf,
	}
	w.staged.PutCompletion(chatID, completion)
	w.proposeCompletion(ctx, chatID, completion)
}

func (w *Workflow) proposeCompletion(ctx context.Context, chatID int64, c *CompletionData) {
	text := fmt.Sprintf("🏁 Completion email for %s (invoice PDF attached):\n\n%s", c.To, c.Body)
	if _, err := w.notifier.SendMessage(ctx, chatID, text, &telegram.InlineKeyboard{
		InlineKeyboard: [][]telegram.Button{
			telegram.Row(
				telegram.Button{Text: "Send", CallbackData: "completion_send"},
				telegram.Button{Text: "Edit", CallbackData: "completion_edit"},
				telegram.Button{Text: "Cancel", CallbackData: "completion_cancel"},
			),
		},
	}); err != nil {
		log.Printf("[Approval] Error proposing completion email: %v", err)
	}
}

func (w *Workflow) sendCompletion(ctx context.Context, chatID int64) {
	completion := w.staged.GetCompletion(chatID)
	// Completion data never survives a send attempt; the invoice already
	// exists in QuickBooks, so a retry must start from /stage again.
	defer w.staged.ClearCompletion(chatID)

	if completion == nil {
		w.say(ctx, chatID, "No completion email staged.")
		return
	}

	attachments := []gmail.Attachment{{Filename: "invoice.pdf", MimeType: "application/pdf", Data: completion.PDF}}
	if err := w.mailer.SendReply(ctx, completion.To, completion.Subject, completion.Body, completion.ThreadID, "", attachments); err != nil {
		w.say(ctx, chatID, fmt.Sprintf("Completion email failed to send: %v. Invoice exists in QuickBooks; restart with /stage if needed.", err))
		return
	}

	if job, err := w.jobs.FindByID(completion.JobID); err == nil && job != nil {
		job.Stage = jobdomain.StageInvoiced
		if err := w.jobs.Update(job); err != nil {
			log.Printf("[Approval] Error advancing job %s to invoiced: %v", job.ID, err)
		}
	}
	w.say(ctx, chatID, fmt.Sprintf("Completion email and invoice sent to %s.", completion.To))
}

func (w *Workflow) editCompletion(ctx context.Context, chatID int64) {
	if w.staged.GetCompletion(chatID) == nil {
		w.say(ctx, chatID, "No completion email staged.")
		return
	}
	w.sessions.Put(chatID, &EditSession{State: StateAwaitingCompletionEmailEdit})
	w.say(ctx, chatID, "Send the replacement text for the completion email:")
}

func (w *Workflow) say(ctx context.Context, chatID int64, text string) {
	if _, err := w.notifier.SendMessage(ctx, chatID, text, nil); err != nil {
		log.Printf("[Approval] Error sending message: %v", err)
	}
}

func estimateKeyboard(estimateID string) *telegram.InlineKeyboard {
	return &telegram.InlineKeyboard{
		InlineKeyboard: [][]telegram.Button{
			telegram.Row(
				telegram.Button{Text: "Approve ✅", CallbackData: "approve:" + estimateID},
				telegram.Button{Text: "Edit ✏️", CallbackData: "edit:" + estimateID},
				telegram.Button{Text: "Reject ❌", CallbackData: "reject:" + estimateID},
			),
		},
	}
}

func formatEstimate(est *estimatedomain.Estimate) string {
	var b strings.Builder
	for i, item := range est.Items {
		fmt.Fprintf(&b, "%d. %s\n   %.0f\"×%.0f\" × %d @ $%.2f = $%.2f\n   %s confidence (%s",
			i+1, item.Description, item.WidthIn, item.HeightIn, item.Quantity,
			item.UnitPrice, item.LineTotal, item.Confidence, item.PriceSource)
		if item.SampleSize > 0 {
			fmt.Fprintf(&b, ", %d past jobs, %.0f%% won", item.SampleSize, item.WinRate*100)
		}
		b.WriteString(")\n")
	}
	fmt.Fprintf(&b, "\nTotal: $%.2f", est.Total)
	if est.TurnaroundDays > 0 {
		fmt.Fprintf(&b, "\nTurnaround: %d days", est.TurnaroundDays)
	}
	return b.String()
}

func quickbooksLines(est *estimatedomain.Estimate) []quickbooks.Line {
	lines := make([]quickbooks.Line, 0, len(est.Items))
	for _, item := range est.Items {
		lines = append(lines, quickbooks.Line{
			Description: item.Description,
			Quantity:    float64(item.Quantity),
			UnitPrice:   item.UnitPrice,
			Amount:      item.LineTotal,
		})
	}
	return lines
}

// truncate shortens s to at most n runes for button labels. Counting runes
// keeps the cut from splitting a multi-byte character.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
