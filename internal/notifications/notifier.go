package notifications

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/deals"
)

// Service fans deal activities out to connected clients. It satisfies the
// deal engine's Notifier interface; dispatch never blocks a mutation.
type Service struct {
	hub    *Hub
	logger *zap.Logger
}

// NewService creates a new notification service
func NewService(hub *Hub, logger *zap.Logger) *Service {
	return &Service{
		hub:    hub,
		logger: logger,
	}
}

// Notify pushes one activity to one recipient.
func (s *Service) Notify(userID uuid.UUID, activity *deals.Activity) {
	if activity == nil {
		return
	}

	s.hub.Push(userID, Message{
		Type:          "activity",
		TransactionID: activity.TransactionID,
		ActivityType:  string(activity.Type),
		Title:         activity.Title,
		Description:   activity.Description,
		CreatedAt:     activity.CreatedAt,
	})

	s.logger.Debug("Notification dispatched",
		zap.String("user_id", userID.String()),
		zap.String("activity_type", string(activity.Type)))
}
