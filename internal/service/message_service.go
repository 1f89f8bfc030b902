package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-portal-api/internal/dto"
	"github.com/noah-isme/mentor-portal-api/internal/models"
	appErrors "github.com/noah-isme/mentor-portal-api/pkg/errors"
	"github.com/noah-isme/mentor-portal-api/pkg/jobs"
)

const jobTypeChatPublish = "chat.publish"

type messageStore interface {
	Append(ctx context.Context, msg *models.Message) error
	ListByChannel(ctx context.Context, filter models.MessageFilter) ([]models.Message, error)
	MarkRead(ctx context.Context, channelID, readerID string) (int64, error)
	UnreadCounts(ctx context.Context, readerID string, channelIDs []string) (map[string]int, error)
}

type messageBroker interface {
	Publish(ctx context.Context, msg models.Message) error
	Subscribe(ctx context.Context, channelID string) (<-chan models.Message, func())
}

type publishQueue interface {
	Enqueue(job jobs.Job) error
}

// MessageService handles mentor and student direct messages.
type MessageService struct {
	store     messageStore
	broker    messageBroker
	directory studentDirectory
	queue     publishQueue
	metrics   *MetricsService
	logger    *zap.Logger
	maxLength int
	now       func() time.Time
}

// NewMessageService constructs the service. Call SetQueue once the fan-out
// queue is built; without one messages are published inline.
func NewMessageService(store messageStore, broker messageBroker, directory studentDirectory, metrics *MetricsService, logger *zap.Logger, maxLength int) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLength <= 0 {
		maxLength = 2000
	}
	return &MessageService{
		store:     store,
		broker:    broker,
		directory: directory,
		metrics:   metrics,
		logger:    logger,
		maxLength: maxLength,
		now:       time.Now,
	}
}

// SetQueue attaches the fan-out queue.
func (s *MessageService) SetQueue(queue publishQueue) {
	s.queue = queue
}

// PublishJob is the jobs.Handler for chat fan-out.
func (s *MessageService) PublishJob(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(models.Message)
	if !ok {
		s.logger.Error("unexpected chat publish payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.broker.Publish(ctx, msg); err != nil {
		s.metrics.RecordChatPublish("error")
		return err
	}
	s.metrics.RecordChatPublish("ok")
	return nil
}

// Channel resolves the channel between the caller and peerID, enforcing
// that one is a mentor and the other their assigned student.
func (s *MessageService) Channel(ctx context.Context, caller models.JWTClaims, peerID string) (string, *models.User, error) {
	if peerID == "" || peerID == caller.UserID {
		return "", nil, appErrors.Clone(appErrors.ErrValidation, "invalid chat peer")
	}
	peer, err := s.directory.FindByID(ctx, peerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, appErrors.Clone(appErrors.ErrNotFound, "chat peer not found")
		}
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chat peer")
	}

	switch caller.Role {
	case models.RoleMentor:
		if !peer.AssignedTo(caller.UserID) {
			return "", nil, appErrors.Clone(appErrors.ErrForbidden, "mentors can only message their assigned students")
		}
	case models.RoleStudent:
		if peer.Role != models.RoleMentor {
			return "", nil, appErrors.Clone(appErrors.ErrForbidden, "students can only message their mentor")
		}
		self, err := s.directory.FindByID(ctx, caller.UserID)
		if err != nil {
			return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
		}
		if !self.AssignedTo(peer.ID) {
			return "", nil, appErrors.Clone(appErrors.ErrForbidden, "students can only message their mentor")
		}
	default:
		return "", nil, appErrors.Clone(appErrors.ErrForbidden, "chat is only available to mentors and students")
	}

	return models.ChannelID(caller.UserID, peer.ID), peer, nil
}

// Send appends a message to the channel and schedules its fan-out.
func (s *MessageService) Send(ctx context.Context, caller models.JWTClaims, peerID string, req dto.SendMessageRequest) (*models.Message, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message text is required")
	}
	if utf8.RuneCountInString(text) > s.maxLength {
		return nil, appErrors.Clone(appErrors.ErrValidation, "message text is too long")
	}

	channelID, _, err := s.Channel(ctx, caller, peerID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ID:         uuid.NewString(),
		ChannelID:  channelID,
		SenderID:   caller.UserID,
		SenderName: caller.DisplayName,
		Text:       text,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.Append(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}

	s.fanOut(ctx, *msg)
	return msg, nil
}

// History returns the latest messages of the channel in ascending order and
// marks the peer's messages as read.
func (s *MessageService) History(ctx context.Context, caller models.JWTClaims, peerID string, before *time.Time, limit int) ([]models.Message, error) {
	channelID, _, err := s.Channel(ctx, caller, peerID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.ListByChannel(ctx, models.MessageFilter{ChannelID: channelID, Before: before, Limit: limit})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load messages")
	}
	if messages == nil {
		messages = []models.Message{}
	}
	if before == nil {
		if _, err := s.store.MarkRead(ctx, channelID, caller.UserID); err != nil {
			s.logger.Warn("failed to mark messages read", zap.String("channel_id", channelID), zap.Error(err))
		}
	}
	return messages, nil
}

// MarkRead marks every message from the peer as read and returns how many changed.
func (s *MessageService) MarkRead(ctx context.Context, caller models.JWTClaims, peerID string) (int64, error) {
	channelID, _, err := s.Channel(ctx, caller, peerID)
	if err != nil {
		return 0, err
	}
	updated, err := s.store.MarkRead(ctx, channelID, caller.UserID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark messages read")
	}
	return updated, nil
}

// Contacts lists who the caller may message: a mentor's students or a
// student's mentor.
func (s *MessageService) Contacts(ctx context.Context, caller models.JWTClaims) ([]dto.Contact, error) {
	var contacts []dto.Contact
	switch caller.Role {
	case models.RoleMentor:
		students, err := s.directory.ListStudentsByMentor(ctx, caller.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contacts")
		}
		for _, student := range students {
			contacts = append(contacts, dto.Contact{
				ID:          student.ID,
				DisplayName: student.DisplayName,
				Email:       student.Email,
				Role:        models.RoleStudent,
				ChannelID:   models.ChannelID(caller.UserID, student.ID),
			})
		}
	case models.RoleStudent:
		self, err := s.directory.FindByID(ctx, caller.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
		}
		if self.MentorID != nil && *self.MentorID != "" {
			mentor, err := s.directory.FindByID(ctx, *self.MentorID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mentor")
			}
			if mentor != nil {
				contacts = append(contacts, dto.Contact{
					ID:          mentor.ID,
					DisplayName: mentor.DisplayName,
					Email:       mentor.Email,
					Role:        models.RoleMentor,
					ChannelID:   models.ChannelID(caller.UserID, mentor.ID),
				})
			}
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "chat is only available to mentors and students")
	}

	if len(contacts) == 0 {
		return []dto.Contact{}, nil
	}

	channelIDs := make([]string, 0, len(contacts))
	for _, c := range contacts {
		channelIDs = append(channelIDs, c.ChannelID)
	}
	unread, err := s.store.UnreadCounts(ctx, caller.UserID, channelIDs)
	if err != nil {
		s.logger.Warn("failed to count unread messages", zap.String("user_id", caller.UserID), zap.Error(err))
		return contacts, nil
	}
	for i := range contacts {
		contacts[i].Unread = unread[contacts[i].ChannelID]
	}
	return contacts, nil
}

// Subscribe opens a live feed of the channel shared with peerID.
func (s *MessageService) Subscribe(ctx context.Context, caller models.JWTClaims, peerID string) (<-chan models.Message, func(), error) {
	channelID, _, err := s.Channel(ctx, caller, peerID)
	if err != nil {
		return nil, nil, err
	}
	feed, cancel := s.broker.Subscribe(ctx, channelID)
	return feed, cancel, nil
}

func (s *MessageService) fanOut(ctx context.Context, msg models.Message) {
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{ID: msg.ID, Type: jobTypeChatPublish, Payload: msg})
		if err == nil {
			return
		}
		s.logger.Warn("chat fan-out queue unavailable, publishing inline", zap.String("message_id", msg.ID), zap.Error(err))
	}
	if err := s.PublishJob(ctx, jobs.Job{ID: msg.ID, Type: jobTypeChatPublish, Payload: msg}); err != nil {
		s.logger.Warn("failed to publish chat message", zap.String("message_id", msg.ID), zap.Error(err))
	}
}
