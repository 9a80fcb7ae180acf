package notification

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/common"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/store/redisstore"
)

var ErrMissingField = errors.New("conversation_id, message_id and user_id are required")

const (
	previewMaxLen  = 160
	unreadCacheTTL = 30 * time.Second
)

type NotifyInput struct {
	ConversationID string
	MessageID      string
	UserID         string
	MessagePreview string
	CustomerName   string
}

type ListResult struct {
	Notifications []ListItem
	UnreadCount   int64
}

// Service aggregates customer-message notifications for tenant users. The
// cache is optional; a nil store just means every unread count hits the DB.
type Service struct {
	repo     *Repo
	convRepo *conversation.Repo
	cache    *redisstore.Store
}

func NewService(repo *Repo, convRepo *conversation.Repo, cache *redisstore.Store) *Service {
	return &Service{repo: repo, convRepo: convRepo, cache: cache}
}

// Notify creates an unread notification, idempotent on the
// (conversation, message, user) triple. The same id comes back no matter how
// many times the event is delivered.
func (s *Service) Notify(ctx context.Context, in NotifyInput) (string, bool, error) {
	if in.ConversationID == "" || in.MessageID == "" || in.UserID == "" {
		return "", false, ErrMissingField
	}

	preview := in.MessagePreview
	if len(preview) > previewMaxLen {
		preview = preview[:previewMaxLen]
	}

	id, err := common.NewULID()
	if err != nil {
		return "", false, err
	}
	n := &Notification{
		ID:             id,
		ConversationID: in.ConversationID,
		MessageID:      in.MessageID,
		UserID:         in.UserID,
		MessagePreview: preview,
		CustomerName:   in.CustomerName,
	}

	saved, created, err := s.repo.CreateOrGet(ctx, n)
	if err != nil {
		return "", false, err
	}
	if created {
		s.invalidateUnread(ctx, in.UserID)
	}
	return saved.ID, created, nil
}

// List returns a page of notifications plus the unread aggregate. The
// aggregate is computed independently because the page may be truncated.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit int) (*ListResult, error) {
	items, err := s.repo.List(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}

	unread, err := s.unreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ListResult{Notifications: items, UnreadCount: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return err
	}
	s.invalidateUnread(ctx, userID)
	return nil
}

// MarkAllReadForConversation read-marks the conversation's notifications and
// resets its unread counter. The two effects are not transactional with each
// other, but both are always attempted.
func (s *Service) MarkAllReadForConversation(ctx context.Context, conversationID, userID string) error {
	_, markErr := s.repo.MarkAllForConversation(ctx, conversationID, userID)
	resetErr := s.convRepo.ResetUnread(ctx, conversationID, userID)
	s.invalidateUnread(ctx, userID)
	return errors.Join(markErr, resetErr)
}

func (s *Service) unreadCount(ctx context.Context, userID string) (int64, error) {
	if s.cache != nil {
		if n, ok, err := s.cache.GetUnreadCount(ctx, userID); err == nil && ok {
			return n, nil
		}
	}
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.SetUnreadCount(ctx, userID, n, unreadCacheTTL); err != nil {
			log.Printf("unread cache set failed user=%s err=%v", userID, err)
		}
	}
	return n, nil
}

func (s *Service) invalidateUnread(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUnreadCount(ctx, userID); err != nil {
		log.Printf("unread cache invalidate failed user=%s err=%v", userID, err)
	}
}
