package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mimercado/marketplace/internal/cartops"
)

// Sweeper returns abandoned cart reservations to available stock.
// Stock is soft-locked the moment an item enters a cart; without this
// job, stock held by an abandoned cart would stay invisible forever.
type Sweeper struct {
	Repo *cartops.GormRepo
	Log  *slog.Logger

	cron *cron.Cron
}

func New(repo *cartops.GormRepo, log *slog.Logger) *Sweeper {
	return &Sweeper{Repo: repo, Log: log}
}

// Start schedules the sweep. Spec uses cron syntax, e.g. "@every 5m".
func (s *Sweeper) Start(spec string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.Log.Error("reservation sweep failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}

// Sweep releases every expired reservation, item by item so one bad
// row cannot block the rest.
func (s *Sweeper) Sweep(ctx context.Context) error {
	now := time.Now().UTC()
	items, err := s.Repo.ExpiredItems(ctx, now)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	released := 0
	for _, item := range items {
		if err := s.Repo.ReleaseItem(ctx, item.ID); err != nil {
			s.Log.Warn("release failed", "cart_item_id", item.ID, "product_id", item.ProductID, "error", err)
			continue
		}
		released++
	}
	s.Log.Info("reservation sweep done", "expired", len(items), "released", released)
	return nil
}
