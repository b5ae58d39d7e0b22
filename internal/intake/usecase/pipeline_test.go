package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	approvalusecase "signdesk-backend/internal/approval/usecase"
	contactdomain "signdesk-backend/internal/contact/domain"
	estimatedomain "signdesk-backend/internal/estimate/domain"
	estimateusecase "signdesk-backend/internal/estimate/usecase"
	jobdomain "signdesk-backend/internal/job/domain"
	jobusecase "signdesk-backend/internal/job/usecase"
	pricingdomain "signdesk-backend/internal/pricing/domain"
	pricingusecase "signdesk-backend/internal/pricing/usecase"
	"signdesk-backend/pkg/ai"
	"signdesk-backend/pkg/dedup"
	"signdesk-backend/pkg/gmail"
	"signdesk-backend/pkg/telegram"
)

const operatorChat int64 = 99

// ---- fakes ----

type fakeMail struct {
	messages map[string]*gmail.Message
	fetches  int
	newIDs   []string
	cursor   uint64
}

func (m *fakeMail) FetchMessage(_ context.Context, id string) (*gmail.Message, error) {
	m.fetches++
	msg, ok := m.messages[id]
	if !ok {
		return nil, errors.New("message not found")
	}
	return msg, nil
}

func (m *fakeMail) ListNewMessageIDs(_ context.Context, _ uint64) ([]string, uint64, error) {
	return m.newIDs, m.cursor, nil
}

type fakeContacts struct {
	byEmail map[string]*contactdomain.Contact
}

func (r *fakeContacts) Create(*contactdomain.Contact) error { return nil }
func (r *fakeContacts) FindByEmail(email string) (*contactdomain.Contact, error) {
	return r.byEmail[email], nil
}
func (r *fakeContacts) FindByID(string) (*contactdomain.Contact, error)  { return nil, nil }
func (r *fakeContacts) ListActive() ([]*contactdomain.Contact, error)    { return nil, nil }
func (r *fakeContacts) Update(*contactdomain.Contact) error              { return nil }

type fakeClassifier struct {
	result     *ai.Classification
	classified int
	draft      string
	draftErr   error
	lastDraft  ai.DraftContext
}

func (c *fakeClassifier) ClassifyEmail(context.Context, string, string) (*ai.Classification, error) {
	c.classified++
	if c.result == nil {
		return nil, ai.ErrNoResponse
	}
	return c.result, nil
}

func (c *fakeClassifier) DraftReply(_ context.Context, d ai.DraftContext) (string, error) {
	c.lastDraft = d
	if c.draftErr != nil {
		return "", c.draftErr
	}
	return c.draft, nil
}

type fakeCatalog struct {
	signTypes []*pricingdomain.SignType
	materials []*pricingdomain.Material
}

func (c *fakeCatalog) ListSignTypes() ([]*pricingdomain.SignType, error) { return c.signTypes, nil }
func (c *fakeCatalog) ListMaterials() ([]*pricingdomain.Material, error) { return c.materials, nil }

type fakeHistory struct{}

func (fakeHistory) Create(*pricingdomain.HistoryEntry) error { return nil }
func (fakeHistory) FindDecided(string, string) ([]*pricingdomain.HistoryEntry, error) {
	return nil, nil
}
func (fakeHistory) SetOutcomeByEstimateItemIDs([]string, pricingdomain.Outcome) error { return nil }

type fakeJobs struct {
	jobs []*jobdomain.Job
}

func (r *fakeJobs) Create(*jobdomain.Job) error                  { return nil }
func (r *fakeJobs) FindByID(string) (*jobdomain.Job, error)      { return nil, nil }
func (r *fakeJobs) FindActive(contactID string) ([]*jobdomain.Job, error) {
	var out []*jobdomain.Job
	for _, j := range r.jobs {
		if contactID == "" || j.ContactID == contactID {
			out = append(out, j)
		}
	}
	return out, nil
}
func (r *fakeJobs) FindByIDPrefix(string) ([]*jobdomain.Job, error)            { return nil, nil }
func (r *fakeJobs) FindDueEtaReminders(time.Time) ([]*jobdomain.Job, error)    { return nil, nil }
func (r *fakeJobs) Update(*jobdomain.Job) error                                { return nil }
func (r *fakeJobs) MarkEtaReminderSent(string) error                           { return nil }

type fakeEstimateRepo struct {
	created []*estimatedomain.Estimate
	won     []estimatedomain.Estimate
}

func (r *fakeEstimateRepo) Create(e *estimatedomain.Estimate) error {
	if e.ID == "" {
		e.ID = fmt.Sprintf("est-%d", len(r.created)+1)
	}
	r.created = append(r.created, e)
	return nil
}
func (r *fakeEstimateRepo) FindByID(string) (*estimatedomain.Estimate, error) { return nil, nil }
func (r *fakeEstimateRepo) FindWonByContact(string) ([]estimatedomain.Estimate, error) {
	return r.won, nil
}
func (r *fakeEstimateRepo) Update(*estimatedomain.Estimate) error { return nil }

type fakeApprovals struct {
	estimates []*estimatedomain.Estimate
	replies   []*approvalusecase.StagedReply
}

func (a *fakeApprovals) NotifyEstimate(_ context.Context, _ int64, est *estimatedomain.Estimate, _ string) error {
	a.estimates = append(a.estimates, est)
	return nil
}

func (a *fakeApprovals) ProposeReply(_ context.Context, _ int64, reply *approvalusecase.StagedReply) error {
	a.replies = append(a.replies, reply)
	return nil
}

type fakeNotifier struct {
	notes []string
}

func (n *fakeNotifier) SendMessage(_ context.Context, _ int64, text string, _ *telegram.InlineKeyboard) (int64, error) {
	n.notes = append(n.notes, text)
	return int64(len(n.notes)), nil
}

type fakeSync struct {
	cursors map[string]uint64
}

func (s *fakeSync) GetHistoryID(email string) (uint64, error)       { return s.cursors[email], nil }
func (s *fakeSync) SaveHistoryID(email string, id uint64) error     { s.cursors[email] = id; return nil }

// ---- fixture ----

type fixture struct {
	pipeline   *Pipeline
	mail       *fakeMail
	classifier *fakeClassifier
	approvals  *fakeApprovals
	notifier   *fakeNotifier
	jobs       *fakeJobs
	estimates  *fakeEstimateRepo
	sync       *fakeSync
}

func newFixture() *fixture {
	mail := &fakeMail{messages: make(map[string]*gmail.Message)}
	contacts := &fakeContacts{byEmail: map[string]*contactdomain.Contact{
		"pm@taylorfacility.com": {ID: "contact-1", Name: "Taylor Facility Services", Email: "pm@taylorfacility.com", Active: true},
		"old@gone.com":          {ID: "contact-2", Name: "Gone Co", Email: "old@gone.com", Active: false},
	}}
	classifier := &fakeClassifier{draft: "Drafted reply"}
	catalog := &fakeCatalog{
		signTypes: []*pricingdomain.SignType{{ID: "st-1", Name: "Banner", BaseRatePerSqFt: 10, MinPrice: 50}},
		materials: []*pricingdomain.Material{{ID: "m-1", Name: "Vinyl", PriceMultiplier: 1.0}},
	}
	jobs := &fakeJobs{}
	estimates := &fakeEstimateRepo{}
	approvals := &fakeApprovals{}
	notifier := &fakeNotifier{}
	sync := &fakeSync{cursors: make(map[string]uint64)}

	engine := pricingusecase.NewEngine(catalog, fakeHistory{})
	estUC := estimateusecase.NewEstimateUsecase(estimates, jobs, fakeHistory{})
	matcher := jobusecase.NewMatcher(jobs)
	dedupStore := dedup.NewMemoryStore(dedup.DefaultTTL)

	pipeline := NewPipeline(dedupStore, mail, contacts, classifier, engine, estUC, matcher, approvals, notifier, sync, operatorChat)
	return &fixture{pipeline: pipeline, mail: mail, classifier: classifier, approvals: approvals,
		notifier: notifier, jobs: jobs, estimates: estimates, sync: sync}
}

func (f *fixture) addMessage(id, from, subject, body string) {
	f.mail.messages[id] = &gmail.Message{
		ID:          id,
		ThreadID:    "thread-" + id,
		From:        from,
		Subject:     subject,
		Body:        body,
		RFC822MsgID: "<" + id + "@mail.example.com>",
		ReceivedAt:  time.Now(),
	}
}

// ---- tests ----

func TestDuplicateMessageProcessedOnce(t *testing.T) {
	f := newFixture()
	f.addMessage("msg-1", "pm@taylorfacility.com", "Hello", "Just checking in")
	f.classifier.result = &ai.Classification{Intent: ai.IntentGeneral}

	ctx := context.Background()
	require.NoError(t, f.pipeline.ProcessMessage(ctx, "msg-1"))
	require.NoError(t, f.pipeline.ProcessMessage(ctx, "msg-1"))

	require.Equal(t, 1, f.mail.fetches)
	require.Equal(t, 1, f.classifier.classified)
}

func TestUnknownSenderIgnored(t *testing.T) {
	f := newFixture()
	f.addMessage("msg-1", "stranger@nowhere.com", "Buy my product", "spam")
	f.classifier.result = &ai.Classification{Intent: ai.IntentNewRequest}

	require.NoError(t, f.pipeline.ProcessMessage(context.Background(), "msg-1"))
	require.Zero(t, f.classifier.classified)
	require.Empty(t, f.notifier.notes)
}

func TestInactiveSenderIgnored(t *testing.T) {
	f := newFixture()
	f.addMessage("msg-1", "old@gone.com", "Order", "signs please")
	f.classifier.result = &ai.Classification{Intent: ai.IntentNewRequest}

	require.NoError(t, f.pipeline.ProcessMessage(context.Background(), "msg-1"))
	require.Zero(t, f.classifier.classified)
}

func TestNewRequestBuildsEstimateProposal(t *testing.T) {
	f := newFixture()
	f.addMessage("msg-1", "pm@taylorfacility.com", "Need banners", "Two 4x8 vinyl banners please")
	f.classifier.result = &ai.Classification{
		Intent: ai.IntentNewRequest,
		Items: []ai.RequestedItem{
			{Description: "4x8 vinyl banner", SignType: "banner", Material: "vinyl", Size: "4x8", Quantity: 2},
		},
	}

	require.NoError(t, f.pipeline.ProcessMessage(context.Background(), "msg-1"))

	require.Len(t, f.approvals.estimates, 1)
	est := f.approvals.estimates[0]
	require.Equal(t, "contact-1", est.ContactID)
	require.Equal(t, "msg-1", est.MessageID)
	require.Len(t, est.Items, 1)
	require.Equal(t, "4x8 vinyl banner", est.Items[0].Description)
	// 4x8 feet = 48x96 inches = 32 sqft, base rate 10 => 320 per unit.
	require.Equal(t, 320.0, est.Items[0].UnitPrice)
	require.Equal(t, 640.0, est.Total)
}

func TestNewRequestWithoutItemsNotifiesOnly(t *testing.T) {
	f := newFixture()
	f.addMessage("msg-1", "pm@taylorfacility.com", "Need some signage", "Can you make us something nice?")
	f.classifier.result = &ai.Classification{Intent: ai.IntentNewRequest}

	require.NoError(t, f.pipeline.ProcessMessage(context.Background(), "msg-1"))

	require.Empty(t, f.approvals.estimates)
	require.Len(t, f.notifier.notes, 1)
	require.Contains(t, f.notifier.notes[0], "No line items")
}

func TestStatusInquiryWithSingleMatchStagesReply(t *testing.T) {
	f := newFixture()
	f.jobs.jobs = []*jobdomain.Job{
		{ID: "job-1", ContactID: "contact-1", Description: "Channel letters for Taylor Facility storefront",
			Stage: jobdomain.StageInProduction, CreatedAt: time.Now().AddDate(0, 0, -10)},
	}
	f.addMessage("msg-1", "pm@taylorfacility.com", "Status?", "How are the channel letters coming along?")
	f.classifier.result = &ai.Classification{
		Intent:   ai.IntentStatusInquiry,
		Keywords: []string{"channel letters", "storefront"},
	}

	require.NoError(t, f.pipeline.ProcessMessage(context.Background(), "msg-1"))

	require.Len(t, f.approvals.replies, 1)
	reply := f.approvals.replies[0]
	require.Equal(t, "status_reply", reply.Kind)
	require.Equal(t, "pm@taylorfacility.com", reply.To)
	require.Equal(t, "Drafted reply", reply.Body)
	require.Equal(t, "thread-msg-1", reply.ThreadID)
	require.Equal(t, "status_reply", f.classifier.lastDraft.Purpose)
	require.Equal(t, "in_production", f.classifier.lastDraft.JobStage)
}

func TestStatusInquiryAmbiguityGoesToOperator(t *testing.T) {
	f := newFixture()
	f.jobs.jobs = []*jobdomain.Job{
		{ID: "job-1", ContactID: "contact-1", Description: "channel letters north entrance",
			Stage: jobdomain.StagePending, CreatedAt: time.Now().AddDate(0, 0, -5)},
		{ID: "job-2", ContactID: "contact-1", Description: "channel letters south entrance",
			Stage: jobdomain.StagePending, CreatedAt: time.Now().AddDate(0, 0, -5)},
	}
	f.addMessage("msg-1", "pm@taylorfacility.com", "Status?", "How are the channel letters?")
	f.classifier.result = &ai.Classification{
		Intent:   ai.IntentStatusInquiry,
		Keywords: []string{"channel letters"},
	}

	require.NoError(t, f.pipeline.ProcessMessage(context.Background(), "msg-1"))

	require.Empty(t, f.approvals.replies)
	require.Len(t, f.notifier.notes, 1)
	require.Contains(t, f.notifier.notes[0], "couldn't pin down one job")
}

func TestStatusInquiryNoMatchGoesToOperator(t *testing.T) {
	f := newFixture()
	f.addMessage("msg-1", "pm@taylorfacility.com", "Status?", "Where is my order?")
	f.classifier.result = &ai.Classification{
		Intent:   ai.IntentStatusInquiry,
		Keywords: []string{"monument sign"},
	}

	require.NoError(t, f.pipeline.ProcessMessage(context.Background(), "msg-1"))
	require.Empty(t, f.approvals.replies)
	require.Len(t, f.notifier.notes, 1)
}

func TestReorderPicksBestWonEstimate(t *testing.T) {
	f := newFixture()
	// Ordered most recent first, as the repository returns them.
	f.estimates.won = []estimatedomain.Estimate{
		{ID: "est-new", ContactID: "contact-1", Status: estimatedomain.StatusWon, Total: 200,
			Items: []estimatedomain.EstimateItem{{Description: "parking placards", Quantity: 20, UnitPrice: 10}}},
		{ID: "est-old", ContactID: "contact-1", Status: estimatedomain.StatusWon, Total: 500,
			Items: []estimatedomain.EstimateItem{{Description: "vinyl banner for spring sale", Quantity: 2, UnitPrice: 250}}},
	}
	f.addMessage("msg-1", "pm@taylorfacility.com", "Reorder", "We'd like the same vinyl banner again")
	f.classifier.result = &ai.Classification{
		Intent:   ai.IntentReorder,
		Keywords: []string{"vinyl banner"},
	}

	require.NoError(t, f.pipeline.ProcessMessage(context.Background(), "msg-1"))

	require.Len(t, f.approvals.replies, 1)
	require.Equal(t, "reorder_confirmation", f.approvals.replies[0].Kind)
	require.Equal(t, "reorder_confirmation", f.classifier.lastDraft.Purpose)
	require.Contains(t, f.classifier.lastDraft.Notes, "$500.00")
}

func TestReorderTieBrokenByRecency(t *testing.T) {
	won := []estimatedomain.Estimate{
		{ID: "recent", Items: []estimatedomain.EstimateItem{{Description: "lobby sign brushed aluminum"}}},
		{ID: "older", Items: []estimatedomain.EstimateItem{{Description: "lobby sign brushed aluminum"}}},
	}
	best := bestReorderCandidate(won, []string{"lobby sign"})
	require.NotNil(t, best)
	require.Equal(t, "recent", best.ID)
}

func TestReorderWithoutMatchNotifies(t *testing.T) {
	f := newFixture()
	f.addMessage("msg-1", "pm@taylorfacility.com", "Reorder", "Same as last time")
	f.classifier.result = &ai.Classification{Intent: ai.IntentReorder, Keywords: []string{"truck wrap"}}

	require.NoError(t, f.pipeline.ProcessMessage(context.Background(), "msg-1"))
	require.Empty(t, f.approvals.replies)
	require.Len(t, f.notifier.notes, 1)
	require.Contains(t, f.notifier.notes[0], "no past won estimate")
}

func TestApprovalIntentIsNotifyOnly(t *testing.T) {
	f := newFixture()
	f.addMessage("msg-1", "pm@taylorfacility.com", "Looks good", "Approved, go ahead!")
	f.classifier.result = &ai.Classification{Intent: ai.IntentApproval}

	require.NoError(t, f.pipeline.ProcessMessage(context.Background(), "msg-1"))
	require.Len(t, f.notifier.notes, 1)
	require.Contains(t, f.notifier.notes[0], "appears to approve")
	require.Empty(t, f.approvals.replies)
	require.Empty(t, f.approvals.estimates)
}

func TestGeneralIntentIsSilent(t *testing.T) {
	f := newFixture()
	f.addMessage("msg-1", "pm@taylorfacility.com", "Thanks", "Thanks for the update!")
	f.classifier.result = &ai.Classification{Intent: ai.IntentGeneral}

	require.NoError(t, f.pipeline.ProcessMessage(context.Background(), "msg-1"))
	require.Empty(t, f.notifier.notes)
	require.Empty(t, f.approvals.replies)
}

func TestHistoryCursorLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// First ping only establishes the cursor.
	require.NoError(t, f.pipeline.ProcessHistoryUpdate(ctx, "shop@signdesk.com", 1000))
	require.Equal(t, uint64(1000), f.sync.cursors["shop@signdesk.com"])
	require.Zero(t, f.mail.fetches)

	// Second ping lists messages since the stored cursor and advances it.
	f.addMessage("msg-1", "pm@taylorfacility.com", "Hi", "General note")
	f.classifier.result = &ai.Classification{Intent: ai.IntentGeneral}
	f.mail.newIDs = []string{"msg-1"}
	f.mail.cursor = 1200

	require.NoError(t, f.pipeline.ProcessHistoryUpdate(ctx, "shop@signdesk.com", 1100))
	require.Equal(t, 1, f.mail.fetches)
	require.Equal(t, uint64(1200), f.sync.cursors["shop@signdesk.com"])
}

func TestInboundMessageMapping(t *testing.T) {
	received := time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC)
	msg := toInbound(&gmail.Message{
		ID:          "gm-44",
		ThreadID:    "thread-9",
		From:        "pm@taylorfacility.com",
		FromName:    "Jordan Taylor",
		Subject:     "Lobby sign",
		Body:        "Quote please",
		RFC822MsgID: "<abc@mail.gmail.com>",
		ReceivedAt:  received,
	})

	require.Equal(t, "gm-44", msg.MessageID)
	require.Equal(t, "thread-9", msg.ThreadID)
	require.Equal(t, "pm@taylorfacility.com", msg.FromEmail)
	require.Equal(t, "Jordan Taylor", msg.FromName)
	require.Equal(t, "Lobby sign", msg.Subject)
	require.Equal(t, "Quote please", msg.Body)
	require.Equal(t, "<abc@mail.gmail.com>", msg.RFC822MsgID)
	require.Equal(t, received, msg.ReceivedAt)
}
