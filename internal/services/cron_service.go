package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const cronJobTimeout = 2 * time.Minute

// CronService manages scheduled background jobs
type CronService struct {
	cron           *cron.Cron
	bookingSvc     *BookingService
	fulfillmentSvc *FulfillmentService
	adminAuthSvc   *AdminAuthService
	logger         *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(
	bookingSvc *BookingService,
	fulfillmentSvc *FulfillmentService,
	adminAuthSvc *AdminAuthService,
	logger *logrus.Logger,
) *CronService {
	// Seconds precision; overlapping runs of the same job are skipped
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &CronService{
		cron:           c,
		bookingSvc:     bookingSvc,
		fulfillmentSvc: fulfillmentSvc,
		adminAuthSvc:   adminAuthSvc,
		logger:         logger,
	}
}

// Start starts all cron jobs
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	jobs := []struct {
		spec string
		name string
		run  func()
	}{
		// second minute hour day month weekday
		{"0 * * * * *", "Release expired booking holds (every minute)", s.releaseExpiredHoldsJob},
		{"30 */5 * * * *", "Retry ticket deliveries (every 5 minutes)", s.retryFulfillmentsJob},
		{"0 0 4 * * *", "Cleanup admin sessions (daily at 4:00 AM)", s.cleanupSessionsJob},
	}

	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.spec, job.run); err != nil {
			return fmt.Errorf("failed to schedule %q: %w", job.name, err)
		}
		s.logger.Infof("✓ Scheduled: %s", job.name)
	}

	s.cron.Start()
	s.logger.Info("✓ Cron service started successfully")
	return nil
}

// Stop stops all cron jobs and waits for running ones
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("✓ Cron service stopped")
}

func (s *CronService) releaseExpiredHoldsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), cronJobTimeout)
	defer cancel()

	released, err := s.bookingSvc.ReleaseExpiredHolds(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to release expired holds")
		return
	}
	if released > 0 {
		s.logger.WithField("released", released).Info("[CRON] ✓ Released expired holds")
	}
}

func (s *CronService) retryFulfillmentsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), cronJobTimeout)
	defer cancel()

	startTime := time.Now()
	retried, err := s.fulfillmentSvc.RetryPending(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to retry ticket deliveries")
		return
	}
	if retried > 0 {
		s.logger.WithFields(logrus.Fields{
			"retried":  retried,
			"duration": time.Since(startTime).String(),
		}).Info("[CRON] ✓ Retried ticket deliveries")
	}
}

func (s *CronService) cleanupSessionsJob() {
	ctx, cancel := context.WithTimeout(context.Background(), cronJobTimeout)
	defer cancel()

	removed, err := s.adminAuthSvc.CleanupSessions(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to cleanup admin sessions")
		return
	}
	s.logger.WithField("removed", removed).Info("[CRON] ✓ Cleaned up admin sessions")
}
