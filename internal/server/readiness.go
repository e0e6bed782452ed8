package server

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	readyBaseDelay   = 100 * time.Millisecond
	readyMaxDelay    = 5 * time.Second
	readyPingTimeout = 2 * time.Second
)

// readiness flips to true once the session storage answered a ping.
type readiness struct {
	ok atomic.Bool
}

func (r *readiness) Ready() bool {
	return r.ok.Load()
}

// WaitReady pings the session storage with capped exponential backoff until
// it answers or ctx ends. Protected pages serve the loading view until then.
func (s *Server) WaitReady(ctx context.Context) error {
	if s.ready.Ready() {
		return nil
	}

	b := retry.WithCappedDuration(readyMaxDelay, retry.NewExponential(readyBaseDelay))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, readyPingTimeout)
		defer cancel()
		if err := s.authService.Ready(pingCtx); err != nil {
			s.logger.Warn(ctx, "session storage not ready", "backend", s.cfg.Storage.Backend, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.ready.ok.Store(true)
	s.logger.Info(ctx, "session storage ready", "backend", s.cfg.Storage.Backend)
	return nil
}
