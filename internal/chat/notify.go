package chat

import (
	"context"

	"tugasin/server/internal/metrics"
	"tugasin/server/internal/models"

	"go.uber.org/zap"
)

const previewLimit = 50

// notifyOffline creates one durable notification for an offline recipient.
// It never fails the send; a lost notification is reconciled on the next
// history fetch.
func (s *Service) notifyOffline(ctx context.Context, userID string, msg *models.MessageWithSender) {
	n := &models.Notification{
		UserID:         userID,
		Type:           models.NotifNewMessage,
		Title:          msg.SenderName,
		Body:           Preview(msg.Content, msg.Type),
		ConversationID: &msg.ConversationID,
		MessageID:      &msg.ID,
	}

	if err := s.store.InsertNotification(ctx, n); err != nil {
		s.log.Warn("insert notification", zap.Error(err), zap.String("userId", userID))
		return
	}
	metrics.NotificationsCreated.Inc()
}

// Preview builds the notification body: text is truncated to 50 chars
// with an ellipsis, non-text types get an icon-labelled placeholder.
func Preview(content, msgType string) string {
	switch msgType {
	case models.TypeImage:
		return "📷 Image"
	case models.TypeVideo:
		return "🎥 Video"
	case models.TypeDocument:
		return "📄 Document"
	case models.TypeLocation:
		return "📍 Location"
	}

	runes := []rune(content)
	if len(runes) > previewLimit {
		return string(runes[:previewLimit]) + "..."
	}
	return content
}
