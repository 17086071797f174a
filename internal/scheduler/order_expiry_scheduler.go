package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// OrderExpiryScheduler cancels card orders whose payment never completed
type OrderExpiryScheduler struct {
	cron         *cron.Cron
	orderService service.OrderService
	schedule     string
	olderThan    time.Duration
}

func NewOrderExpiryScheduler(orderService service.OrderService, schedule string, olderThan time.Duration) *OrderExpiryScheduler {
	return &OrderExpiryScheduler{
		cron:         cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		orderService: orderService,
		schedule:     schedule,
		olderThan:    olderThan,
	}
}

// Start registers the sweep and starts the cron loop
func (s *OrderExpiryScheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		logger.Error("Failed to add cron job for order expiry", err, map[string]interface{}{
			"schedule": s.schedule,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Order expiry scheduler started", map[string]interface{}{
		"schedule":   s.schedule,
		"older_than": s.olderThan.String(),
	})

	return nil
}

func (s *OrderExpiryScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	expired, err := s.orderService.ExpireStalePendingOrders(ctx, s.olderThan)
	if err != nil {
		logger.Error("Scheduled order expiry failed", err)
		return
	}
	if expired > 0 {
		logger.Info("Expired unpaid orders", map[string]interface{}{
			"count": expired,
		})
	}
}

// Stop waits for a running sweep to finish
func (s *OrderExpiryScheduler) Stop() {
	logger.Info("Stopping order expiry scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Order expiry scheduler stopped", nil)
}
