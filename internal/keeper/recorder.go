package keeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/observability"
	"stablebond-keeper/internal/storage"
)

// Recorder persists tick outcomes and remembers the last run of each keeper.
// Nil stores are skipped.
type Recorder struct {
	runs    storage.KeeperRunStore
	actions storage.KeeperActionStore
	logger  *slog.Logger

	mu   sync.RWMutex
	last map[domain.KeeperName]domain.KeeperRun
}

// NewRecorder creates a recorder writing to runs and actions.
func NewRecorder(runs storage.KeeperRunStore, actions storage.KeeperActionStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		runs:    runs,
		actions: actions,
		logger:  logger.With(slog.String("component", "recorder")),
		last:    make(map[domain.KeeperName]domain.KeeperRun),
	}
}

// Record stores one tick. tickErr is the tick-level failure, if any.
func (r *Recorder) Record(ctx context.Context, keeper domain.KeeperName, started, finished time.Time, found int, res Result, tickErr error) (*domain.KeeperRun, error) {
	run := domain.KeeperRun{
		RunID:      uuid.NewString(),
		Keeper:     keeper,
		StartedAt:  started.UnixMilli(),
		FinishedAt: finished.UnixMilli(),
		Found:      found,
		Submitted:  res.Submitted(),
		Failed:     res.Failed(),
		Skipped:    res.Skipped(),
	}
	if tickErr != nil {
		msg := tickErr.Error()
		run.Err = &msg
	}

	for _, it := range res.Items {
		observability.RecordKeeperItem(string(keeper), string(it.Outcome))
	}

	r.mu.Lock()
	r.last[keeper] = run
	r.mu.Unlock()

	if r.runs != nil {
		start := time.Now()
		err := r.runs.Insert(ctx, &run)
		observability.RecordDBQuery("keeper_store", "insert_keeper_run", time.Since(start).Seconds(), err)
		if err != nil {
			return &run, fmt.Errorf("record run: %w", err)
		}
	}

	if r.actions != nil && len(res.Items) > 0 {
		actions := make([]*domain.KeeperAction, 0, len(res.Items))
		for i, it := range res.Items {
			a := &domain.KeeperAction{
				RunID:       run.RunID,
				Seq:         i,
				Keeper:      keeper,
				Instruction: it.Instruction,
				Target:      it.Target.String(),
				BondType:    it.BondType,
				Outcome:     it.Outcome,
				CreatedAt:   run.FinishedAt,
			}
			if it.Signature != nil {
				sig := it.Signature.String()
				a.Signature = &sig
			}
			switch {
			case it.Err != nil:
				msg := it.Err.Error()
				a.Err = &msg
			case it.Reason != "":
				reason := it.Reason
				a.Err = &reason
			}
			actions = append(actions, a)
		}
		start := time.Now()
		err := r.actions.InsertBulk(ctx, actions)
		observability.RecordDBQuery("keeper_store", "insert_keeper_actions", time.Since(start).Seconds(), err)
		if err != nil {
			return &run, fmt.Errorf("record actions: %w", err)
		}
	}
	return &run, nil
}

// Last returns the most recent run of keeper.
func (r *Recorder) Last(keeper domain.KeeperName) (domain.KeeperRun, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.last[keeper]
	return run, ok
}

// Snapshot returns the last run of every keeper that has ticked.
func (r *Recorder) Snapshot() map[domain.KeeperName]domain.KeeperRun {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domain.KeeperName]domain.KeeperRun, len(r.last))
	for k, v := range r.last {
		out[k] = v
	}
	return out
}
