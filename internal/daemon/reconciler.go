package daemon

import (
	"context"
	"log/slog"
	"time"
)

// Reconcilable drops windows that no longer exist on the toolkit side.
type Reconcilable interface {
	Reconcile(ctx context.Context) ([]string, error)
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically forgets host windows the user closed from the
// window manager.
type Reconciler struct {
	interval time.Duration
	target   Reconcilable
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, target Reconcilable) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		interval: interval,
		target:   target,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// ReconcileNow triggers an immediate reconciliation pass and returns the
// labels it dropped.
func (r *Reconciler) ReconcileNow(ctx context.Context) []string {
	return r.reconcile(ctx)
}

func (r *Reconciler) reconcile(ctx context.Context) []string {
	dropped, err := r.target.Reconcile(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Warn("reconciler: pass failed", "error", err)
		}
		return nil
	}
	for _, label := range dropped {
		r.logger.Info("reconciler: window closed externally", "window", label)
	}
	return dropped
}
