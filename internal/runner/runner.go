// Package runner drives single pipeline passes and the scheduled watch
// loop around them.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"meetblocks/internal/availability"
	"meetblocks/internal/config"
	"meetblocks/internal/export"
	appLog "meetblocks/internal/log"
	"meetblocks/internal/model"
	"meetblocks/internal/when2meet"
)

// Snapshot is the outcome of one completed run.
type Snapshot struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	EventNames []string
	Result     availability.Result
	// Files are the export paths written by this run.
	Files []string
}

// Store holds the latest snapshot for concurrent readers.
type Store struct {
	mu     sync.RWMutex
	latest *Snapshot
}

func NewStore() *Store {
	return &Store{}
}

// Latest returns the most recent snapshot, if any run has completed.
func (s *Store) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Snapshot{}, false
	}
	return *s.latest, true
}

func (s *Store) Publish(snap Snapshot) {
	s.mu.Lock()
	s.latest = &snap
	s.mu.Unlock()
}

// Runner executes pipeline runs for one configuration. Runs never overlap.
type Runner struct {
	cfg    *config.Config
	loader when2meet.Loader
	store  *Store
	now    func() time.Time

	runMu sync.Mutex
}

// New creates a Runner. A nil store gets a fresh one.
func New(cfg *config.Config, loader when2meet.Loader, store *Store) *Runner {
	if store == nil {
		store = NewStore()
	}
	return &Runner{
		cfg:    cfg,
		loader: loader,
		store:  store,
		now:    time.Now,
	}
}

// Store returns the store runs publish to.
func (r *Runner) Store() *Store {
	return r.store
}

// NewLoader picks the page loader for cfg.Fetch.Mode.
func NewLoader(cfg *config.Config) when2meet.Loader {
	timeout := time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	if cfg.Fetch.Mode == config.FetchBrowser {
		return &when2meet.BrowserLoader{Timeout: timeout}
	}
	return &when2meet.HTTPLoader{Fetcher: when2meet.NewFetcher(cfg.Fetch.CacheDir, timeout)}
}

// Sources converts the configured pages, primary first.
func Sources(cfg *config.Config) []when2meet.Source {
	out := make([]when2meet.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		out = append(out, when2meet.Source{ID: s.SourceID(), URL: s.URL})
	}
	return out
}

// RunOnce loads every source, runs the analysis and writes the configured
// exports. An empty result is published but not exported.
func (r *Runner) RunOnce(ctx context.Context) (Snapshot, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	snap := Snapshot{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
	}
	appLog.Info("run start", "run_id", snap.RunID, "sources", len(r.cfg.Sources))

	params, err := r.cfg.Params(snap.StartedAt)
	if err != nil {
		return Snapshot{}, err
	}

	datasets, err := when2meet.LoadAll(ctx, r.loader, Sources(r.cfg))
	if err != nil {
		return Snapshot{}, fmt.Errorf("runner: load: %w", err)
	}

	res, err := availability.Run(params, datasets)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Result = res
	snap.EventNames = eventNames(datasets)

	if res.Empty() {
		appLog.Info("no timeslots in range; nothing exported", "run_id", snap.RunID)
	} else if len(r.cfg.Output.Formats) > 0 {
		base := export.FileBase(snap.EventNames, snap.StartedAt)
		files, err := export.WriteAll(r.cfg.Output.Dir, base, res, r.cfg.Output.Formats)
		if err != nil {
			return Snapshot{}, fmt.Errorf("runner: export: %w", err)
		}
		snap.Files = files
	}

	snap.FinishedAt = r.now()
	r.store.Publish(snap)

	appLog.Info("run finished",
		"run_id", snap.RunID,
		"ranges", len(res.Ranges),
		"files", len(snap.Files),
		"elapsed", snap.FinishedAt.Sub(snap.StartedAt).Round(time.Millisecond).String(),
	)
	return snap, nil
}

// Watch runs immediately and then on cfg.Refresh until ctx is cancelled.
// Failed runs are logged; the previous snapshot stays published.
func (r *Runner) Watch(ctx context.Context) error {
	loc, err := time.LoadLocation(r.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("runner: timezone %q: %w", r.cfg.Timezone, err)
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(r.cfg.Refresh, func() { r.runLogged(ctx) }); err != nil {
		return fmt.Errorf("runner: schedule %q: %w", r.cfg.Refresh, err)
	}

	r.runLogged(ctx)

	c.Start()
	appLog.Info("watch started", "refresh", r.cfg.Refresh, "timezone", loc.String())

	<-ctx.Done()

	appLog.Info("watch stopping")
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}

func (r *Runner) runLogged(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := r.RunOnce(ctx); err != nil {
		appLog.Error("scheduled run failed", err)
	}
}

func eventNames(datasets []model.Dataset) []string {
	out := make([]string, 0, len(datasets))
	for _, ds := range datasets {
		name := ds.Name
		if name == "" {
			name = ds.SourceID
		}
		out = append(out, name)
	}
	return out
}
