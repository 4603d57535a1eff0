package chat

import (
	"context"
	"fmt"
	"time"

	"tugasin/server/internal/apperr"
	"tugasin/server/internal/metrics"
	"tugasin/server/internal/models"
	"tugasin/server/internal/websocket"

	"go.uber.org/zap"
)

// presenceWait bounds each presence check; a non-answer means offline.
const presenceWait = 3 * time.Second

var validTypes = map[string]bool{
	models.TypeText:     true,
	models.TypeImage:    true,
	models.TypeVideo:    true,
	models.TypeDocument: true,
	models.TypeLocation: true,
}

// Service implements the message pipeline and the read-receipt/reaction
// handler on top of the injected store, bus and presence tracker.
type Service struct {
	store    Store
	bus      Bus
	presence Presence
	log      *zap.Logger
}

// NewService creates the chat service
func NewService(store Store, bus Bus, presence Presence, log *zap.Logger) *Service {
	return &Service{store: store, bus: bus, presence: presence, log: log}
}

// SendMessageInput carries the send_message payload
type SendMessageInput struct {
	ConversationID   string
	Content          string
	Type             string
	MediaURL         *string
	MediaName        *string
	ReplyToMessageID *string
}

// SendMessage runs the full pipeline: membership check, persist with
// status 'sent', sender/reply enrichment, dual fanout, conversation touch,
// then the delivered/notification pass per member.
func (s *Service) SendMessage(ctx context.Context, senderID string, in SendMessageInput) (*models.MessageWithSender, error) {
	if in.ConversationID == "" || (in.Content == "" && in.MediaURL == nil) {
		return nil, fmt.Errorf("conversation id and content are required: %w", apperr.ErrValidation)
	}
	if in.Type == "" {
		in.Type = models.TypeText
	}
	if !validTypes[in.Type] {
		return nil, fmt.Errorf("invalid message type %q: %w", in.Type, apperr.ErrValidation)
	}

	member, err := s.store.IsMember(ctx, in.ConversationID, senderID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("not a member of this conversation: %w", apperr.ErrForbidden)
	}

	msg := &models.Message{
		ConversationID:   in.ConversationID,
		SenderID:         senderID,
		Content:          in.Content,
		Type:             in.Type,
		MediaURL:         in.MediaURL,
		MediaName:        in.MediaName,
		ReplyToMessageID: in.ReplyToMessageID,
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()

	full := s.enrich(ctx, msg)

	members, err := s.store.MemberIDs(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}

	s.fanout(in.ConversationID, members, websocket.WSMessage{
		Type:      websocket.EventNewMessage,
		Payload:   full,
		Timestamp: time.Now(),
	})

	if err := s.store.TouchConversation(ctx, in.ConversationID); err != nil {
		s.log.Warn("touch conversation", zap.Error(err))
	}

	s.deliverOrNotify(ctx, full, members)

	return full, nil
}

// enrich attaches sender display info and, when replying, a denormalized
// preview of the referenced message. A missing reference just omits the
// preview.
func (s *Service) enrich(ctx context.Context, msg *models.Message) *models.MessageWithSender {
	full := &models.MessageWithSender{Message: *msg}

	if sender, err := s.store.UserByID(ctx, msg.SenderID); err == nil {
		full.SenderName = sender.Name
		full.SenderAvatar = sender.Avatar
	}

	if msg.ReplyToMessageID != nil {
		ref, err := s.store.MessageByID(ctx, *msg.ReplyToMessageID)
		if err != nil {
			return full
		}
		preview := &models.ReplyPreview{ID: ref.ID, Content: ref.Content, Type: ref.Type}
		if refSender, err := s.store.UserByID(ctx, ref.SenderID); err == nil {
			preview.SenderName = refSender.Name
		}
		full.ReplyTo = preview
	}

	return full
}

// fanout publishes to the conversation topic and to every member's
// personal topic. The dual fanout is deliberate: clients viewing the
// overview list are bound only to their personal topic.
func (s *Service) fanout(conversationID string, members []string, event websocket.WSMessage) {
	s.bus.Publish(websocket.ConversationTopic(conversationID), event)
	for _, uid := range members {
		s.bus.Publish(websocket.UserTopic(uid), event)
	}
}

// deliverOrNotify runs the status lifecycle: the first online member
// advances the message to 'delivered' (scalar status, "delivered to at
// least one other member"); offline members get a durable notification.
func (s *Service) deliverOrNotify(ctx context.Context, msg *models.MessageWithSender, members []string) {
	for _, uid := range members {
		if uid == msg.SenderID {
			continue
		}

		checkCtx, cancel := context.WithTimeout(ctx, presenceWait)
		online, err := s.presence.Online(checkCtx, uid)
		cancel()
		if err != nil {
			// Fail-safe default is offline, never online
			online = false
		}

		if online {
			updated, err := s.store.MarkDelivered(ctx, msg.ID)
			if err != nil {
				s.log.Warn("mark delivered", zap.Error(err), zap.String("messageId", msg.ID))
				continue
			}
			if updated {
				s.broadcastStatus(ctx, msg.ConversationID, msg.ID, models.StatusDelivered, members)
			}
			continue
		}

		s.notifyOffline(ctx, uid, msg)
	}
}

// broadcastStatus fans a message_status_update out to the conversation
// topic and every member's personal topic.
func (s *Service) broadcastStatus(ctx context.Context, conversationID, messageID, status string, members []string) {
	event := websocket.WSMessage{
		Type: websocket.EventMessageStatusUpdate,
		Payload: websocket.MessageStatusPayload{
			MessageID:      messageID,
			ConversationID: conversationID,
			Status:         status,
		},
		Timestamp: time.Now(),
	}

	if members == nil {
		var err error
		members, err = s.store.MemberIDs(ctx, conversationID)
		if err != nil {
			s.log.Warn("load members for status broadcast", zap.Error(err))
			return
		}
	}

	s.fanout(conversationID, members, event)
}
