package images

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"myapi/internal/metrics"
)

const (
	DefaultSweepInterval = 1 * time.Hour
	DefaultSweepGrace    = 1 * time.Hour
)

// ImageRefChecker reports whether a user still references a base filename.
type ImageRefChecker interface {
	ImageInUse(ctx context.Context, base string) (bool, error)
}

// Sweeper removes variant sets that no user references, once they are
// older than the grace period.
type Sweeper struct {
	backend  Backend
	refs     ImageRefChecker
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

func NewSweeper(backend Backend, refs ImageRefChecker, interval, grace time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if grace <= 0 {
		grace = DefaultSweepGrace
	}
	return &Sweeper{
		backend:  backend,
		refs:     refs,
		interval: interval,
		grace:    grace,
		now:      time.Now,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	slog.Info("starting image sweeper", "component", "image_sweeper", "interval", s.interval, "grace", s.grace)

	s.runSweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping image sweeper", "component", "image_sweeper")
			return
		case <-ticker.C:
			s.runSweep(ctx)
		}
	}
}

func (s *Sweeper) runSweep(ctx context.Context) {
	removed, err := s.Sweep(ctx)
	if err != nil {
		slog.Error("error sweeping orphaned images", "component", "image_sweeper", "error", err)
	}
	if removed > 0 {
		slog.Info("removed orphaned image variants", "component", "image_sweeper", "count", removed)
	}
}

// Sweep returns the number of variant objects removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	objects, err := s.backend.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing variants: %w", err)
	}

	cutoff := s.now().Add(-s.grace)
	sets := make(map[string][]ObjectInfo)
	for _, obj := range objects {
		_, base, ok := ParseVariantName(obj.Name)
		if !ok {
			continue
		}
		sets[base] = append(sets[base], obj)
	}

	removed := 0
	for base, set := range sets {
		if !olderThan(set, cutoff) {
			continue
		}

		inUse, err := s.refs.ImageInUse(ctx, base)
		if err != nil {
			return removed, fmt.Errorf("checking references for %s: %w", base, err)
		}
		if inUse {
			continue
		}

		for _, obj := range set {
			if err := s.backend.Remove(ctx, obj.Name); err != nil {
				slog.Warn("error removing orphaned variant", "component", "image_sweeper", "name", obj.Name, "error", err)
				continue
			}
			removed++
			metrics.VariantsSwept.Inc()
		}
	}

	return removed, nil
}

func olderThan(set []ObjectInfo, cutoff time.Time) bool {
	for _, obj := range set {
		if obj.ModTime.After(cutoff) {
			return false
		}
	}
	return true
}
