package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/car-service/internal/config"
	"github.com/spec-kit/car-service/internal/events"
)

// NotificationService handles emitting notifications for lifecycle events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventServiceCreated, n.handleServiceCreated)
	n.dispatcher.Subscribe(events.EventServiceStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventServiceAssigned, n.handleAssigned)
	n.dispatcher.Subscribe(events.EventServicePaymentReceived, n.handlePaymentReceived)
	n.dispatcher.Subscribe(events.EventServiceCancelled, n.handleCancelled)
}

func (n *NotificationService) handleServiceCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ServiceCreated", zap.String("service_id", event.ServiceID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ServiceStatusChanged", zap.String("service_id", event.ServiceID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("ServiceAssigned", zap.String("service_id", event.ServiceID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePaymentReceived(ctx context.Context, event events.Event) error {
	n.logger.Info("ServicePaymentReceived", zap.String("service_id", event.ServiceID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleCancelled(ctx context.Context, event events.Event) error {
	n.logger.Info("ServiceCancelled", zap.String("service_id", event.ServiceID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("service_id", event.ServiceID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("service_id", event.ServiceID),
		zap.String("event_type", string(event.Type)))
}
