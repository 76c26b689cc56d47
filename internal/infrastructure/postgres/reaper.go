package postgres

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wavlang/backend/internal/domain/repository"
)

// TokenReaper periodically removes expired one-time tokens, the SQL
// equivalent of a TTL index. Run blocks until ctx is cancelled.
type TokenReaper struct {
	Tokens   repository.TokenRepository
	Interval time.Duration
	Logger   *logrus.Logger
}

func NewTokenReaper(tokens repository.TokenRepository, interval time.Duration, logger *logrus.Logger) *TokenReaper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TokenReaper{Tokens: tokens, Interval: interval, Logger: logger}
}

func (rp *TokenReaper) Run(ctx context.Context) {
	ticker := time.NewTicker(rp.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := rp.Tokens.DeleteExpired(ctx)
			if err != nil {
				if ctx.Err() == nil && rp.Logger != nil {
					rp.Logger.WithError(err).Warn("token reap failed")
				}
				continue
			}
			if n > 0 && rp.Logger != nil {
				rp.Logger.WithField("count", n).Debug("reaped expired tokens")
			}
		}
	}
}
