package automation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mklimuk/sheet-pilot/pkg/db"
)

// ActionFunc executes one automation and returns its output.
type ActionFunc func(ctx context.Context, def db.AutomationDefinition) (string, error)

// actionTimeout bounds a single action run; report generation dominated by
// the LLM call normally finishes well under this.
const actionTimeout = 5 * time.Minute

// Service polls the automations table and executes whatever has come due.
// Claiming clears next_run_at inside a transaction, so a definition is run
// at most once per occurrence even across restarts.
type Service struct {
	repo         *db.Repository
	pollInterval time.Duration
	claimLimit   int

	mu      sync.RWMutex
	actions map[string]ActionFunc

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewService creates a new automation scheduler service.
func NewService(repo *db.Repository, pollInterval time.Duration, claimLimit int) *Service {
	if pollInterval <= 0 {
		pollInterval = 15 * time.Second
	}
	if claimLimit <= 0 {
		claimLimit = 10
	}
	return &Service{
		repo:         repo,
		pollInterval: pollInterval,
		claimLimit:   claimLimit,
		actions:      make(map[string]ActionFunc),
		stop:         make(chan struct{}),
	}
}

// RegisterAction registers a runnable automation action.
func (s *Service) RegisterAction(name string, fn ActionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[name] = fn
}

func (s *Service) action(name string) ActionFunc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actions[name]
}

// Start begins the polling loop.
func (s *Service) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop stops the polling loop and waits for shutdown.
func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Service) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	// First tick fires immediately so restarts pick up overdue work.
	s.runOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.runOnce(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	now := time.Now().UTC()
	due, err := s.repo.ClaimDueAutomations(now, s.claimLimit)
	if err != nil {
		log.Printf("automation: claim failed: %v", err)
		return
	}
	for _, def := range due {
		s.execute(ctx, def, now)
	}
}

// outcome is what one execution leaves behind in automation_runs.
type outcome struct {
	status  string
	runErr  string
	output  string
	nextRun *time.Time
	enabled bool
}

func (s *Service) execute(ctx context.Context, def db.AutomationDefinition, now time.Time) {
	runID, err := s.repo.InsertAutomationRun(def.ID, now)
	if err != nil {
		log.Printf("automation: cannot record run for %q (id=%d): %v", def.Name, def.ID, err)
		return
	}

	o := s.runAction(ctx, def)
	s.reschedule(&o, def, now)

	if o.status != "success" {
		log.Printf("automation: %q (id=%d) failed: %s", def.Name, def.ID, o.runErr)
	}

	if err := s.repo.CompleteAutomationRun(runID, def.ID, o.status, o.runErr, o.output,
		time.Now().UTC(), o.enabled, now, o.nextRun); err != nil {
		log.Printf("automation: cannot finalize run=%d for id=%d: %v", runID, def.ID, err)
	}
}

func (s *Service) runAction(ctx context.Context, def db.AutomationDefinition) outcome {
	fn := s.action(def.ActionType)
	if fn == nil {
		return outcome{status: "failed", runErr: fmt.Sprintf("unknown action_type: %s", def.ActionType)}
	}

	runCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	output, err := fn(runCtx, def)
	if err != nil {
		return outcome{status: "failed", runErr: err.Error(), output: output}
	}
	return outcome{status: "success", output: output}
}

// reschedule computes the next occurrence and decides whether the definition
// stays enabled. Oneshots and definitions with no future occurrence are
// switched off rather than left claimed forever.
func (s *Service) reschedule(o *outcome, def db.AutomationDefinition, now time.Time) {
	nextRun, err := NextRun(def.ScheduleKind, def.ScheduleExpr, def.Timezone, now)
	if err != nil {
		o.status = "failed"
		if o.runErr == "" {
			o.runErr = err.Error()
		} else {
			o.runErr = o.runErr + "; next run calc failed: " + err.Error()
		}
		nextRun = nil
	}

	o.nextRun = nextRun
	o.enabled = def.Enabled
	if def.ScheduleKind == "oneshot" || nextRun == nil {
		o.enabled = false
	}
}
