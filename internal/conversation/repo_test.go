package conversation

import (
	"context"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Customer{}, &Conversation{}, &Message{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seed(t *testing.T, db *gorm.DB, userID string) *Conversation {
	t.Helper()
	cust := &Customer{ID: uuid.NewString(), Name: "Visitor", Phone: AnonymousPhone}
	if err := db.Create(cust).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	conv := &Conversation{ID: uuid.NewString(), AiID: uuid.NewString(), UserID: userID, CustomerID: cust.ID}
	if err := db.Create(conv).Error; err != nil {
		t.Fatalf("seed conversation: %v", err)
	}
	return conv
}

func TestListUpdatedSince_PollWindow(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	userID := uuid.NewString()
	ctx := context.Background()

	quiet := seed(t, db, userID)
	messaged := seed(t, db, userID)
	intervened := seed(t, db, userID)
	foreign := seed(t, db, uuid.NewString())

	since := time.Now().Add(-time.Minute)

	if err := repo.RecordCustomerMessage(ctx, messaged.ID, time.Now()); err != nil {
		t.Fatalf("record customer message: %v", err)
	}
	if err := repo.RecordCustomerMessage(ctx, foreign.ID, time.Now()); err != nil {
		t.Fatalf("record customer message: %v", err)
	}
	if err := repo.EnableIntervention(ctx, intervened.ID, userID, userID, time.Now()); err != nil {
		t.Fatalf("enable intervention: %v", err)
	}

	got, err := repo.ListUpdatedSince(ctx, userID, since, 50)
	if err != nil {
		t.Fatalf("list updated since: %v", err)
	}

	ids := map[string]bool{}
	for _, c := range got {
		ids[c.ID] = true
		if c.Customer == nil {
			t.Fatalf("delta entries must carry the customer, missing on %s", c.ID)
		}
	}
	if !ids[messaged.ID] {
		t.Fatalf("customer activity must appear in the delta")
	}
	if !ids[intervened.ID] {
		t.Fatalf("an intervention start must appear in the delta")
	}
	if ids[quiet.ID] {
		t.Fatalf("quiet conversations must not appear in the delta")
	}
	if ids[foreign.ID] {
		t.Fatalf("the delta leaked another tenant's conversation")
	}
}

func TestRecordCustomerMessage_BumpsUnread(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	conv := seed(t, db, uuid.NewString())

	for i := 0; i < 3; i++ {
		if err := repo.RecordCustomerMessage(ctx, conv.ID, time.Now()); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	var got Conversation
	if err := db.First(&got, "id = ?", conv.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.UnreadCount != 3 {
		t.Fatalf("expected unread_count 3, got %d", got.UnreadCount)
	}
	if got.LastCustomerMessageAt == nil {
		t.Fatalf("expected last_customer_message_at set")
	}

	if err := repo.ResetUnread(ctx, conv.ID, conv.UserID); err != nil {
		t.Fatalf("reset unread: %v", err)
	}
	if err := db.First(&got, "id = ?", conv.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.UnreadCount != 0 {
		t.Fatalf("expected unread_count 0 after reset, got %d", got.UnreadCount)
	}
}

func TestFindOrCreateByCustomer(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	aiID := uuid.NewString()
	userID := uuid.NewString()
	phone := "15550009999"

	first, err := repo.FindOrCreateByCustomer(ctx, aiID, userID, phone, "Omar")
	if err != nil {
		t.Fatalf("first contact: %v", err)
	}
	if first.Customer == nil || first.Customer.Phone != phone {
		t.Fatalf("expected customer bootstrap: %+v", first.Customer)
	}

	second, err := repo.FindOrCreateByCustomer(ctx, aiID, userID, phone, "Omar")
	if err != nil {
		t.Fatalf("second contact: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("repeat contact must resolve to the same conversation: %s vs %s", first.ID, second.ID)
	}

	// same customer talking to a different assistant is a separate thread
	other, err := repo.FindOrCreateByCustomer(ctx, uuid.NewString(), userID, phone, "Omar")
	if err != nil {
		t.Fatalf("other assistant: %v", err)
	}
	if other.ID == first.ID {
		t.Fatalf("conversations must be per assistant")
	}
}

func TestMessages_InsertAndOrder(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()
	conv := seed(t, db, uuid.NewString())

	base := time.Now().Add(-time.Minute)
	for i, content := range []string{"first", "second", "third"} {
		m := &Message{
			ID:             ulid.Make().String(),
			ConversationID: conv.ID,
			Sender:         SenderCustomer,
			Content:        content,
			MessageType:    MessageTypeText,
			Delivered:      true,
			Timestamp:      base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.InsertMessage(ctx, m); err != nil {
			t.Fatalf("insert %q: %v", content, err)
		}
	}

	msgs, err := repo.ListMessages(ctx, conv.ID, 10)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Content != want {
			t.Fatalf("messages out of timestamp order: %v", msgs)
		}
	}

	if err := repo.MarkMessageUndelivered(ctx, msgs[0].ID); err != nil {
		t.Fatalf("mark undelivered: %v", err)
	}
	var got Message
	if err := db.First(&got, "id = ?", msgs[0].ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Delivered {
		t.Fatalf("expected delivered=false")
	}
}
