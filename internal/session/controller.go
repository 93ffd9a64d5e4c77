// internal/session/controller.go
//
// Package session orchestrates agent runs. The Controller owns the derived
// dashboard state, the lifecycle of at most one streaming run, and the
// cancellation token for that run. It is the only writer of state: HTTP
// handlers and the scheduler go through Start/Stop/Clear and read snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/user/clawboard/internal/classify"
	"github.com/user/clawboard/internal/state"
	"github.com/user/clawboard/internal/stream"
	"github.com/user/clawboard/internal/tokens"
	"github.com/user/clawboard/internal/types"
	"github.com/user/clawboard/pkg/agent"
)

// Status is the controller's lifecycle phase.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusStarting  Status = "starting"
	StatusStreaming Status = "streaming"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ErrBudgetExceeded rejects a start whose session spend has reached the
// configured ceiling. The check runs before any connection is opened.
var ErrBudgetExceeded = errors.New("session budget exceeded")

const readChunkSize = 32 * 1024

// Result summarizes one finished run for notification sinks.
type Result struct {
	Status    Status
	Prompt    string
	Err       error
	TotalCost float64
	Turns     int
}

// Options configures a Controller.
type Options struct {
	Transport agent.Transport
	// BudgetCeiling is the maximum cumulative session cost in USD. Zero
	// disables the gate.
	BudgetCeiling float64
	// Model is the default model when a start request carries none.
	Model string
	// TruncateLimit caps stored tool output; zero means the classifier default.
	TruncateLimit int
	// IDGen allocates ids for tasks and derived entities. Defaults to uuid.
	IDGen func() string
	// Now supplies timestamps for controller-originated events. Defaults to
	// time.Now.
	Now func() time.Time
	// Estimator enables token-count fallback when result frames omit usage.
	Estimator *tokens.Estimator
	// OnChange receives a state snapshot after every applied frame batch.
	OnChange func(state.State)
	// OnFinish receives a summary when a run reaches a terminal status.
	OnFinish func(Result)
	Logger   *slog.Logger
}

// Controller drives one run at a time against a shared state.
type Controller struct {
	opts Options
	log  *slog.Logger

	mu      sync.Mutex
	st      *state.State
	status  Status
	lastRun Status
	cancel  context.CancelFunc
	done    chan struct{}

	// startMu serializes Start/Stop/Clear end to end. Without it, concurrent
	// starts can all pass the implicit stop before any registers its cancel
	// func, leaving several runs streaming and several tasks open at once.
	startMu sync.Mutex
}

// NewController creates an idle controller with empty state.
func NewController(opts Options) *Controller {
	if opts.IDGen == nil {
		opts.IDGen = types.NewID
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		opts:    opts,
		log:     log,
		st:      state.New(),
		status:  StatusIdle,
		lastRun: StatusIdle,
	}
}

// Status reports the current lifecycle phase.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastRun reports the terminal status of the most recently finished run, or
// StatusIdle when no run has finished yet.
func (c *Controller) LastRun() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRun
}

// Snapshot returns an isolated copy of the derived state.
func (c *Controller) Snapshot() state.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Snapshot()
}

// Start begins a new run. Any run already streaming is cancelled first. The
// budget gate runs before the transport is touched: a session at or over its
// ceiling gets an error activity and ErrBudgetExceeded, and no task is
// created.
func (c *Controller) Start(req agent.StartRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.Model == "" {
		req.Model = c.opts.Model
	}

	c.startMu.Lock()
	defer c.startMu.Unlock()

	// Implicit stop: a new prompt supersedes the run in flight.
	c.stopCurrent()

	c.mu.Lock()
	if c.opts.BudgetCeiling > 0 && c.st.TotalCost >= c.opts.BudgetCeiling {
		now := c.opts.Now()
		c.st.Apply(state.ActivityCreate{Activity: types.Activity{
			ID:          types.ActivityID(c.opts.IDGen()),
			Type:        types.ActivityError,
			Title:       "Budget exceeded",
			Description: fmt.Sprintf("Session cost $%.4f has reached the $%.4f ceiling", c.st.TotalCost, c.opts.BudgetCeiling),
			CreatedAt:   now,
			Status:      types.ActivityFailed,
		}})
		total := c.st.TotalCost
		c.mu.Unlock()
		c.emitChange()
		return fmt.Errorf("%w: spent $%.4f of $%.4f", ErrBudgetExceeded, total, c.opts.BudgetCeiling)
	}

	c.status = StatusStarting
	c.st.Apply(state.TaskCreate{Task: types.Task{
		ID:        types.TaskID(c.opts.IDGen()),
		Title:     taskTitle(req.Prompt),
		Status:    types.TaskInProgress,
		CreatedAt: c.opts.Now(),
	}})

	cls := classify.New(classify.Options{
		SessionID:     c.st.SessionID,
		Prompt:        req.Prompt,
		Model:         req.Model,
		TruncateLimit: c.opts.TruncateLimit,
		IDGen:         c.opts.IDGen,
		Estimator:     c.opts.Estimator,
	})

	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()
	c.emitChange()

	rc, err := c.opts.Transport.Open(runCtx, req)
	if err != nil {
		c.log.Error("failed to open agent stream", "error", err)
		c.applyActions(cls.RunError(err.Error(), c.opts.Now()))
		c.settle(StatusFailed)
		cancel()
		close(done)
		c.emitFinish(Result{Status: StatusFailed, Prompt: req.Prompt, Err: err})
		return fmt.Errorf("opening agent stream: %w", err)
	}

	c.mu.Lock()
	c.status = StatusStreaming
	c.mu.Unlock()
	c.log.Info("run started", "model", req.Model)

	go c.run(runCtx, rc, cls, req, done)
	return nil
}

// Stop cancels the run in flight, if any, and waits for it to wind down.
// Idempotent; a no-op when idle.
func (c *Controller) Stop() {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	c.stopCurrent()
}

// stopCurrent cancels and waits out the current run. Callers hold startMu.
func (c *Controller) stopCurrent() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Clear stops any run and resets all derived state and counters.
func (c *Controller) Clear() {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	c.stopCurrent()
	c.mu.Lock()
	c.st.Apply(state.Reset{})
	c.mu.Unlock()
	c.log.Info("session cleared")
	c.emitChange()
}

// run is the per-run read loop. Cancellation is observed only between chunk
// reads, so a chunk already received always drains through the decoder before
// the run winds down.
func (c *Controller) run(ctx context.Context, rc io.ReadCloser, cls *classify.Classifier, req agent.StartRequest, done chan struct{}) {
	defer close(done)
	defer rc.Close()

	dec := stream.NewDecoder()
	buf := make([]byte, readChunkSize)
	sawTerminal := false

	for {
		select {
		case <-ctx.Done():
			c.finishCancelled(req)
			return
		default:
		}

		n, err := rc.Read(buf)
		if n > 0 {
			frames := dec.Feed(string(buf[:n]))
			for _, f := range frames {
				if f.Kind == stream.KindResult || f.Kind == stream.KindError {
					sawTerminal = true
				}
				c.applyActions(cls.Classify(f))
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				c.finishCancelled(req)
				return
			}
			c.log.Error("stream read failed", "error", err)
			c.applyActions(cls.RunError(fmt.Sprintf("stream read failed: %v", err), c.opts.Now()))
			c.finishTerminal(StatusFailed, req, err)
			return
		}
	}

	if !sawTerminal {
		// The stream ended without a result or error frame. Close out what
		// is left open so nothing stays running forever.
		now := c.opts.Now()
		c.applyActions(cls.AbortPending("Stream ended unexpectedly", now))
		c.applyActions(cls.RunError("Stream ended without a result", now))
		c.finishTerminal(StatusFailed, req, errors.New("stream ended without a result"))
		return
	}

	final := StatusCompleted
	c.mu.Lock()
	if n := len(c.st.Tasks); n > 0 && c.st.Tasks[n-1].Status == types.TaskFailed {
		final = StatusFailed
	}
	c.mu.Unlock()
	c.finishTerminal(final, req, nil)
}

func (c *Controller) finishCancelled(req agent.StartRequest) {
	c.applyActions([]state.Action{state.CancelPending{At: c.opts.Now()}})
	c.settle(StatusCancelled)
	c.log.Info("run cancelled")
	c.emitFinish(c.result(StatusCancelled, req, nil))
}

func (c *Controller) finishTerminal(final Status, req agent.StartRequest, err error) {
	c.settle(final)
	c.log.Info("run finished", "status", final)
	c.emitFinish(c.result(final, req, err))
}

// settle records the terminal status and returns the controller to idle so
// the next Start needs no explicit reset.
func (c *Controller) settle(final Status) {
	c.mu.Lock()
	c.lastRun = final
	c.status = StatusIdle
	c.mu.Unlock()
}

func (c *Controller) result(final Status, req agent.StartRequest, err error) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Result{
		Status:    final,
		Prompt:    req.Prompt,
		Err:       err,
		TotalCost: c.st.TotalCost,
		Turns:     c.st.Turns,
	}
}

func (c *Controller) applyActions(actions []state.Action) {
	if len(actions) == 0 {
		return
	}
	c.mu.Lock()
	for _, a := range actions {
		c.st.Apply(a)
	}
	c.mu.Unlock()
	c.emitChange()
}

func (c *Controller) emitChange() {
	if c.opts.OnChange == nil {
		return
	}
	c.opts.OnChange(c.Snapshot())
}

func (c *Controller) emitFinish(r Result) {
	if c.opts.OnFinish == nil {
		return
	}
	c.opts.OnFinish(r)
}

func taskTitle(prompt string) string {
	const max = 80
	if len(prompt) <= max {
		return prompt
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(prompt[cut]) {
		cut--
	}
	return prompt[:cut] + "..."
}
