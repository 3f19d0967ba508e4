package invitation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ManuelReschke/ChurchDesk/app/repository"
)

// Sweeper periodically persists expired for elapsed pending invitations.
type Sweeper struct {
	repo     repository.InvitationRepository
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger
}

func NewSweeper(repo repository.InvitationRepository, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{repo: repo, interval: interval, now: time.Now, log: log}
}

// RunOnce performs a single sweep and returns the number of rows changed.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := Sweep(ctx, s.repo, s.now().UTC())
	if err != nil {
		s.log.Error("invitation sweep failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired elapsed invitations", zap.Int64("count", n))
	}
	return n, nil
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	_, _ = s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}
