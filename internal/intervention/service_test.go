package intervention

import (
	"context"
	"errors"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/messaging"
)

type recordingChannel struct {
	calls []string
	fail  bool
}

func (ch *recordingChannel) Deliver(ctx context.Context, conv *conversation.Conversation, text string) error {
	ch.calls = append(ch.calls, text)
	if ch.fail {
		return errors.New("gateway down")
	}
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&conversation.Customer{}, &conversation.Conversation{}, &conversation.Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB, wa messaging.Channel) (*Service, *conversation.Repo) {
	t.Helper()
	repo := conversation.NewRepo(db)
	channels := messaging.NewRegistry()
	channels.Register(messaging.PlatformWebsite, messaging.WebsiteChannel{})
	if wa == nil {
		wa = &recordingChannel{}
	}
	channels.Register(messaging.PlatformWhatsApp, wa)
	return NewService(repo, messaging.NewRouter(repo, channels)), repo
}

func seedConversation(t *testing.T, db *gorm.DB, userID, phone string) *conversation.Conversation {
	t.Helper()
	cust := &conversation.Customer{ID: uuid.NewString(), Name: "Dana", Phone: phone}
	if err := db.Create(cust).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	conv := &conversation.Conversation{
		ID:         uuid.NewString(),
		AiID:       uuid.NewString(),
		UserID:     userID,
		CustomerID: cust.ID,
	}
	if err := db.Create(conv).Error; err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	conv.Customer = cust
	return conv
}

func reload(t *testing.T, db *gorm.DB, id string) *conversation.Conversation {
	t.Helper()
	var conv conversation.Conversation
	if err := db.First(&conv, "id = ?", id).Error; err != nil {
		t.Fatalf("reload conversation: %v", err)
	}
	return &conv
}

func TestEnableDisable_PairedFields(t *testing.T) {
	db := openTestDB(t)
	userID := uuid.NewString()
	svc, _ := newTestService(t, db, nil)
	conv := seedConversation(t, db, userID, conversation.AnonymousPhone)

	status, err := svc.Enable(context.Background(), conv.ID, userID, userID)
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !status.Enabled || status.StartedAt == nil || status.IntervenedBy == nil {
		t.Fatalf("unexpected status after enable: %+v", status)
	}

	got := reload(t, db, conv.ID)
	if !got.InterventionEnabled {
		t.Fatalf("expected intervention enabled")
	}
	if got.InterventionStartedAt == nil || got.IntervenedBy == nil || got.LastInterventionActivity == nil {
		t.Fatalf("enable must set started_at, intervened_by and last_activity together: %+v", got)
	}

	if err := svc.Disable(context.Background(), conv.ID, userID); err != nil {
		t.Fatalf("disable: %v", err)
	}
	got = reload(t, db, conv.ID)
	if got.InterventionEnabled {
		t.Fatalf("expected intervention disabled")
	}
	if got.InterventionStartedAt != nil || got.IntervenedBy != nil || got.LastInterventionActivity != nil {
		t.Fatalf("disable must clear all intervention fields together: %+v", got)
	}

	// disabling again matches nothing
	if err := svc.Disable(context.Background(), conv.ID, userID); !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second disable, got %v", err)
	}
}

func TestEnable_SendsSingleHandoff(t *testing.T) {
	db := openTestDB(t)
	userID := uuid.NewString()
	svc, _ := newTestService(t, db, nil)
	conv := seedConversation(t, db, userID, conversation.AnonymousPhone)

	if _, err := svc.Enable(context.Background(), conv.ID, userID, userID); err != nil {
		t.Fatalf("enable: %v", err)
	}

	var msgs []conversation.Message
	if err := db.Where("conversation_id = ?", conv.ID).Find(&msgs).Error; err != nil {
		t.Fatalf("query messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one handoff message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.Sender != conversation.SenderBot || !m.Metadata.IsHandoff || !m.Metadata.IsBot {
		t.Fatalf("unexpected handoff message: %+v", m)
	}
	if m.Content != messaging.HandoffCopy {
		t.Fatalf("unexpected handoff copy: %q", m.Content)
	}
}

func TestEnable_HandoffFailureDoesNotRollBack(t *testing.T) {
	db := openTestDB(t)
	userID := uuid.NewString()
	wa := &recordingChannel{fail: true}
	svc, _ := newTestService(t, db, wa)
	conv := seedConversation(t, db, userID, "15550001111")

	if _, err := svc.Enable(context.Background(), conv.ID, userID, userID); err != nil {
		t.Fatalf("enable must swallow handoff failure, got %v", err)
	}
	if len(wa.calls) != 1 {
		t.Fatalf("expected one gateway attempt, got %d", len(wa.calls))
	}

	got := reload(t, db, conv.ID)
	if !got.InterventionEnabled {
		t.Fatalf("conversation must stay under human control despite handoff failure")
	}

	// the saved handoff row is flagged undelivered
	var m conversation.Message
	if err := db.First(&m, "conversation_id = ?", conv.ID).Error; err != nil {
		t.Fatalf("query handoff: %v", err)
	}
	if m.Delivered {
		t.Fatalf("expected handoff flagged undelivered")
	}
}

func TestEnable_WrongTenant(t *testing.T) {
	db := openTestDB(t)
	svc, _ := newTestService(t, db, nil)
	conv := seedConversation(t, db, uuid.NewString(), conversation.AnonymousPhone)

	_, err := svc.Enable(context.Background(), conv.ID, uuid.NewString(), "intruder")
	if !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign tenant, got %v", err)
	}

	var count int64
	if err := db.Model(&conversation.Message{}).Where("conversation_id = ?", conv.ID).Count(&count).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 0 {
		t.Fatalf("no handoff may be sent on a rejected enable, got %d messages", count)
	}
}

func TestRecordActivity_RequiresHumanControl(t *testing.T) {
	db := openTestDB(t)
	userID := uuid.NewString()
	svc, _ := newTestService(t, db, nil)
	conv := seedConversation(t, db, userID, conversation.AnonymousPhone)

	if err := svc.RecordActivity(context.Background(), conv.ID); !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("expected ErrNotFound while AI controlled, got %v", err)
	}

	if _, err := svc.Enable(context.Background(), conv.ID, userID, userID); err != nil {
		t.Fatalf("enable: %v", err)
	}
	before := reload(t, db, conv.ID).LastInterventionActivity

	time.Sleep(5 * time.Millisecond)
	if err := svc.RecordActivity(context.Background(), conv.ID); err != nil {
		t.Fatalf("record activity: %v", err)
	}
	after := reload(t, db, conv.ID).LastInterventionActivity
	if !after.After(*before) {
		t.Fatalf("expected last_activity to advance: before=%v after=%v", before, after)
	}
}

func TestGetStatus_ScopedByTenant(t *testing.T) {
	db := openTestDB(t)
	userID := uuid.NewString()
	svc, _ := newTestService(t, db, nil)
	conv := seedConversation(t, db, userID, conversation.AnonymousPhone)

	status, err := svc.GetStatus(context.Background(), conv.ID, userID)
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if status.Enabled || status.StartedAt != nil {
		t.Fatalf("fresh conversation must be AI controlled: %+v", status)
	}

	if _, err := svc.GetStatus(context.Background(), conv.ID, uuid.NewString()); !errors.Is(err, conversation.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign tenant, got %v", err)
	}
}
