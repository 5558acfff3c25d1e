package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ExpiryJob periodically releases holds whose window has lapsed.
type ExpiryJob struct {
	bookings BookingService
	interval time.Duration
	log      *zap.Logger

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

const defaultSweepInterval = time.Minute

func NewExpiryJob(bookings BookingService, interval time.Duration, log *zap.Logger) *ExpiryJob {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ExpiryJob{
		bookings: bookings,
		interval: interval,
		log:      log.With(zap.String("job", "booking_expiry")),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop in the background until Stop or ctx is done.
func (j *ExpiryJob) Start(ctx context.Context) {
	j.wg.Add(1)
	go j.run(ctx)
	j.log.Info("Booking expiry job started", zap.Duration("interval", j.interval))
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (j *ExpiryJob) Stop() {
	j.once.Do(func() { close(j.done) })
	j.wg.Wait()
	j.log.Info("Booking expiry job stopped")
}

func (j *ExpiryJob) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep(ctx)
		case <-j.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (j *ExpiryJob) sweep(ctx context.Context) {
	expired, err := j.bookings.ExpirePending(ctx)
	if err != nil {
		j.log.Error("Booking expiry sweep failed", zap.Int("expired", expired), zap.Error(err))
		return
	}
	if expired > 0 {
		j.log.Debug("Booking expiry sweep finished", zap.Int("expired", expired))
	}
}
