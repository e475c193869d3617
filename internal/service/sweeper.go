package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically purges expired one-time codes.
type Sweeper struct {
	otp      *OTPService
	logger   *slog.Logger
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewSweeper(otp *OTPService, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		otp:      otp,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	go s.loop()
}

func (s *Sweeper) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			purged, err := s.otp.PurgeExpired(context.Background())
			if err != nil {
				s.logger.Error("Expired code sweep failed", "error", err)
				continue
			}
			if purged > 0 {
				s.logger.Info("Expired codes purged", "count", purged)
			}
		case <-s.stop:
			return
		}
	}
}

func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}
