package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/bonecondor/space-weather/internal/archive"
	"github.com/bonecondor/space-weather/internal/config"
	"github.com/bonecondor/space-weather/internal/dispatch"
	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/models"
	"github.com/bonecondor/space-weather/internal/prediction"
	"github.com/bonecondor/space-weather/internal/snapshot"
	"github.com/bonecondor/space-weather/internal/state"
	"github.com/bonecondor/space-weather/internal/swpc"
)

// Checker runs one monitoring tick: fetch, assemble, evaluate, dispatch,
// persist, verify. It owns the state while the run lock is held.
type Checker struct {
	cfg         *config.Config
	logger      *logging.Logger
	states      *state.Store
	client      *swpc.Client
	dispatcher  *dispatch.Dispatcher
	predictions *prediction.Store
	archive     *archive.Archive // nil when no DSN is configured
}

// New wires a checker from its collaborators.
func New(cfg *config.Config, logger *logging.Logger, states *state.Store, client *swpc.Client, dispatcher *dispatch.Dispatcher, predictions *prediction.Store, arch *archive.Archive) *Checker {
	return &Checker{
		cfg:         cfg,
		logger:      logger,
		states:      states,
		client:      client,
		dispatcher:  dispatcher,
		predictions: predictions,
		archive:     arch,
	}
}

// RunOnce executes a single tick. The caller has already acquired the run
// lock. Even when the pipeline fails part-way, lastRunAt is advanced and the
// state persisted so staleness stays observable.
func (c *Checker) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()
	st := c.states.Load()

	var dispatched []models.Alert
	var snap models.Snapshot
	var regions []models.ActiveRegion
	health := st.DataHealth

	pipelineErr := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("pipeline panic: %v", r)
			}
		}()

		results := c.client.FetchAll(ctx)
		snap, regions, health = snapshot.Assemble(results, st)
		c.logger.Infof("Snapshot: kp=%.1f gScale=%s cmes=%d flares=%d hss=%d regions=%d",
			snap.Kp, snap.GScale, len(snap.EarthDirectedCMEs), len(snap.RecentFlares), len(snap.HSSEvents), len(regions))

		candidates := Evaluate(c.cfg, &snap, regions, st, now)
		c.logger.Infof("Evaluator produced %d candidate alert(s)", len(candidates))

		filtered := Filter(c.cfg, c.logger, candidates, st.LastCooldowns, now)
		dispatched = c.dispatcher.Dispatch(ctx, filtered)

		// Cooldowns advance for every dispatched type even if a channel
		// failed, so a flapping channel cannot cause an alert storm.
		for _, alert := range dispatched {
			st.LastCooldowns[alert.Type] = now
		}
		return nil
	}()
	if pipelineErr != nil {
		// Keep the remembered sets and values intact; only the run marker
		// advances so staleness stays observable.
		c.logger.Errorf("Pipeline failed, persisting run marker anyway: %v", pipelineErr)
		ts := now
		st.LastRunAt = &ts
	} else {
		UpdateState(c.cfg, st, &snap, regions, health, dispatched, now)
	}
	if err := c.states.Save(st); err != nil {
		c.logger.Errorf("CRITICAL: state save failed, prior file kept: %v", err)
	}

	// Verification runs after the state save and never mutates it; failures
	// here are isolated from the tick result.
	c.verifyPredictions(ctx, st, &snap, now)

	if c.archive != nil {
		c.archiveTick(ctx, dispatched, st, &snap, now)
	}

	return pipelineErr
}

// verifyPredictions decides expired pending predictions against observed
// events and notifies the submitter at info urgency.
func (c *Checker) verifyPredictions(ctx context.Context, st *models.CheckerState, snap *models.Snapshot, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("Prediction verification panicked: %v", r)
		}
	}()

	ps := c.predictions.Load(ctx)
	decided := prediction.Verify(ps, st, snap, now)
	if len(decided) == 0 {
		return
	}

	for _, p := range decided {
		c.logger.Infof("Prediction %s verified: %s (%d matched events)", p.ID, p.Status, len(p.MatchedEvents))
		c.dispatcher.Dispatch(ctx, []models.Alert{prediction.ResultAlert(p, now)})
	}
	if err := c.predictions.Save(ctx, ps); err != nil {
		c.logger.Errorf("Prediction save failed: %v", err)
	}
}

// archiveTick records dispatched alerts and currently observed significant
// events in Postgres. Best-effort; archive trouble never fails the tick.
func (c *Checker) archiveTick(ctx context.Context, dispatched []models.Alert, st *models.CheckerState, snap *models.Snapshot, now time.Time) {
	if len(dispatched) > 0 {
		if err := c.archive.InsertAlerts(ctx, dispatched); err != nil {
			c.logger.Errorf("Archive alerts failed: %v", err)
		}
	}
	events := prediction.CollectEvents(st, snap, now.Add(-7*24*time.Hour), now)
	if len(events) > 0 {
		if err := c.archive.InsertEvents(ctx, events); err != nil {
			c.logger.Errorf("Archive events failed: %v", err)
		}
	}
}
