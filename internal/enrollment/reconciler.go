package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"hostel-management-backend/internal/logging"
)

// FeeLinker repairs students whose successful payment was never linked back.
type FeeLinker interface {
	ReconcileFeeLinks(ctx context.Context) (int, error)
}

// Reconciler periodically links unlinked fee payments to their students.
type Reconciler struct {
	linker    FeeLinker
	interval  time.Duration
	scheduler gocron.Scheduler
	log       *logrus.Entry
}

func NewReconciler(linker FeeLinker, interval time.Duration) (*Reconciler, error) {
	if interval <= 0 {
		interval = time.Minute
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Reconciler{
		linker:    linker,
		interval:  interval,
		scheduler: sched,
		log:       logging.WithComponent("reconciler"),
	}, nil
}

// Start schedules the job and starts the scheduler. Runs never overlap.
func (r *Reconciler) Start(ctx context.Context) error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func(ctx context.Context) {
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.WithError(err).Error("Fee back-link reconciliation failed")
			}
		}, ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule reconciler: %w", err)
	}
	r.scheduler.Start()
	r.log.WithField("interval", r.interval).Info("Reconciler started")
	return nil
}

// RunOnce performs a single reconciliation pass.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	linked, err := r.linker.ReconcileFeeLinks(ctx)
	if err != nil {
		return linked, err
	}
	if linked > 0 {
		r.log.WithField("linked", linked).Info("Linked pending fee payments")
	}
	return linked, nil
}

// Stop shuts the scheduler down and waits for a running pass to finish.
func (r *Reconciler) Stop() error {
	return r.scheduler.Shutdown()
}
