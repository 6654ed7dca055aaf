package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/car-service/internal/config"
	"github.com/spec-kit/car-service/internal/domain"
	"github.com/spec-kit/car-service/internal/events"
)

const dashboardCacheKey = "dashboard:status_summary"

// DashboardService serves the staff dashboard status summary with a short
// Redis cache in front of the counting query. Any lifecycle event invalidates
// the cache.
type DashboardService struct {
	lifecycle *LifecycleService
	cache     *redis.Client
	ttl       time.Duration
	logger    *zap.Logger
}

// NewDashboardService builds the service.
func NewDashboardService(cfg config.Config, lifecycle *LifecycleService, cache *redis.Client, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		lifecycle: lifecycle,
		cache:     cache,
		ttl:       cfg.Shop.DashboardCacheTTL(),
		logger:    logger,
	}
}

// RegisterHandlers invalidates the cached summary on every lifecycle event.
func (s *DashboardService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil || s.cache == nil {
		return
	}
	invalidate := func(ctx context.Context, _ events.Event) error {
		if err := s.cache.Del(ctx, dashboardCacheKey).Err(); err != nil {
			s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
		}
		return nil
	}
	for _, eventType := range []events.EventType{
		events.EventServiceCreated,
		events.EventServiceStatusChanged,
		events.EventServiceAssigned,
		events.EventServicePaymentReceived,
		events.EventServiceCancelled,
	} {
		dispatcher.Subscribe(eventType, invalidate)
	}
}

// StatusSummary returns per-status request counts for staff.
func (s *DashboardService) StatusSummary(ctx context.Context, actor domain.Actor) (map[domain.ServiceStatus]int64, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if s.cache != nil && s.ttl > 0 {
		raw, err := s.cache.Get(ctx, dashboardCacheKey).Bytes()
		if err == nil {
			var cached map[domain.ServiceStatus]int64
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	counts, err := s.lifecycle.StatusSummary(ctx, actor)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if raw, err := json.Marshal(counts); err == nil {
			if err := s.cache.Set(ctx, dashboardCacheKey, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("dashboard cache write failed", zap.Error(err))
			}
		}
	}
	return counts, nil
}
