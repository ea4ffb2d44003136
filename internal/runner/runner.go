// Package runner drives the Ralph loop: invoke opencode against a target
// folder, wait for the marker file that ends the iteration, and repeat
// until the task completes, blocks, is stopped, or runs out of attempts.
package runner

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/ralphcodes/ralph/internal/errors"
	"github.com/ralphcodes/ralph/internal/logging"
	"github.com/ralphcodes/ralph/internal/marker"
	"github.com/ralphcodes/ralph/internal/opencode"
	"github.com/ralphcodes/ralph/internal/workspace"
)

// Status is the lifecycle state of a loop runner.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	// StatusWaiting is reported while the loop sleeps between attempts.
	StatusWaiting Status = "waiting"
	// StatusPaused is entered at a loop boundary after Pause.
	StatusPaused Status = "paused"
	// StatusMissingCheckpoint means an iteration ended without any marker
	// file; the loop is holding for a continue/stop decision.
	StatusMissingCheckpoint Status = "missing_checkpoint"
	StatusCompleted         Status = "completed"
	StatusBlocked           Status = "blocked"
	StatusStopped           Status = "stopped"
	StatusFailed            Status = "failed"
)

// Terminal reports whether the status ends the run.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusBlocked, StatusStopped, StatusFailed:
		return true
	}
	return false
}

// WaitReason names why the loop is sleeping.
type WaitReason string

const (
	// WaitCheckpoint is the pause after consuming a checkpoint.
	WaitCheckpoint WaitReason = "checkpoint"
	// WaitBackoff is the pause after a failed opencode invocation.
	WaitBackoff WaitReason = "backoff"
	// WaitCooldown is the pause after the user chose to continue past a
	// missing checkpoint.
	WaitCooldown WaitReason = "cooldown"
)

// Options configures a Runner.
type Options struct {
	Folder      string
	Model       string
	Variant     string
	MaxAttempts int
	Sleep       time.Duration
	Client      *opencode.Client
	Logger      *logging.Logger
}

// Snapshot is a point-in-time view of a runner's state.
type Snapshot struct {
	Status       Status
	Attempt      int
	MaxAttempts  int
	Err          string
	PausePending bool
	// WaitReason and WaitRemaining are set while Status is StatusWaiting.
	WaitReason    WaitReason
	WaitRemaining time.Duration
}

// Runner executes the loop for one target folder. Create with New, start
// with Start, observe with Snapshot, and interact through Pause/Resume/
// Stop/Decide.
type Runner struct {
	opts   Options
	logger *logging.Logger

	mu            sync.Mutex
	status        Status
	attempt       int
	errMsg        string
	pauseRequest  bool
	waitingReason WaitReason
	waitingSince  time.Time
	waitingFor    time.Duration
	cmd           *exec.Cmd

	stopOnce sync.Once
	stopCh   chan struct{}
	resumeCh chan struct{}
	// decisionCh carries the user's answer to a missing checkpoint:
	// true = continue the loop, false = stop.
	decisionCh chan bool
	done       chan struct{}
}

// New creates a Runner. Start must be called to begin the loop.
func New(opts Options) *Runner {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 40
	}
	if opts.Sleep <= 0 {
		opts.Sleep = 2 * time.Second
	}
	if opts.Client == nil {
		opts.Client = opencode.NewClient("", "", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Runner{
		opts:       opts,
		logger:     logger.WithTarget(opts.Folder),
		status:     StatusPending,
		stopCh:     make(chan struct{}),
		resumeCh:   make(chan struct{}, 1),
		decisionCh: make(chan bool, 1),
		done:       make(chan struct{}),
	}
}

// Start launches the loop in a background goroutine. It returns
// ErrTaskAlreadyRunning when called twice.
func (r *Runner) Start() error {
	r.mu.Lock()
	if r.status != StatusPending {
		r.mu.Unlock()
		return errors.NewTaskError("runner already started", errors.ErrTaskAlreadyRunning).
			WithTarget(r.opts.Folder)
	}
	r.status = StatusRunning
	r.mu.Unlock()

	go func() {
		defer close(r.done)
		r.runLoop()
	}()
	return nil
}

// Done returns a channel closed when the loop has finished.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the loop finishes and returns the final status.
func (r *Runner) Wait() Status {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Stop requests a graceful stop: the current opencode invocation is
// terminated and the loop exits at the next check.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.mu.Lock()
	cmd := r.cmd
	r.mu.Unlock()
	if cmd != nil {
		_ = opencode.Terminate(cmd)
	}
}

// ForceKill stops the loop and kills the opencode process tree
// immediately.
func (r *Runner) ForceKill() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.mu.Lock()
	cmd := r.cmd
	r.mu.Unlock()
	if cmd != nil {
		_ = opencode.Kill(cmd)
	}
}

// Pause queues a pause for the next loop boundary. The current opencode
// invocation is never interrupted.
func (r *Runner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusPaused {
		r.pauseRequest = true
	}
}

// Resume releases a paused loop.
func (r *Runner) Resume() {
	r.mu.Lock()
	r.pauseRequest = false
	r.mu.Unlock()
	select {
	case r.resumeCh <- struct{}{}:
	default:
	}
}

// Decide answers a missing-checkpoint hold: true continues the loop, false
// stops it. Ignored unless the runner is in StatusMissingCheckpoint.
func (r *Runner) Decide(continueLoop bool) {
	r.mu.Lock()
	holding := r.status == StatusMissingCheckpoint
	r.mu.Unlock()
	if !holding {
		return
	}
	select {
	case r.decisionCh <- continueLoop:
	default:
	}
}

// Snapshot returns the runner's current state.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Status:       r.status,
		Attempt:      r.attempt,
		MaxAttempts:  r.opts.MaxAttempts,
		Err:          r.errMsg,
		PausePending: r.pauseRequest,
	}
	if r.waitingReason != "" {
		snap.Status = StatusWaiting
		snap.WaitReason = r.waitingReason
		elapsed := time.Since(r.waitingSince)
		if remaining := r.waitingFor - elapsed; remaining > 0 {
			snap.WaitRemaining = remaining
		}
	}
	return snap
}

// runLoop is the loop body, run on its own goroutine.
func (r *Runner) runLoop() {
	ws, err := workspace.New(r.opts.Folder, r.logger)
	if err != nil {
		r.fail(err.Error())
		return
	}

	// The design file is the task definition; without it there is nothing
	// to do.
	if !ws.Exists(workspace.DesignFile) {
		r.fail("missing " + workspace.DesignFile)
		return
	}

	// Give the agent a plan and progress file to maintain
	if _, err := ws.ScaffoldPlan(); err != nil {
		r.fail(err.Error())
		return
	}
	if _, err := ws.ScaffoldProgress(); err != nil {
		r.fail(err.Error())
		return
	}

	// Terminal markers from a previous run would end the loop instantly
	if err := ws.Remove(workspace.CompleteFile); err != nil {
		r.fail(err.Error())
		return
	}
	if err := ws.Remove(workspace.BlockedFile); err != nil {
		r.fail(err.Error())
		return
	}

	r.logger.Info("loop started", "model", r.opts.Model, "max_attempts", r.opts.MaxAttempts)

	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		r.setAttempt(attempt)
		log := r.logger.WithAttempt(attempt)
		log.Info("attempt", "of", r.opts.MaxAttempts)

		if !r.holdIfPaused() {
			r.setStatus(StatusStopped)
			log.Info("stop requested while paused")
			return
		}

		if r.stopRequested() || marker.StopRequested(r.opts.Folder) {
			r.setStatus(StatusStopped)
			log.Info("stop requested")
			return
		}

		// A marker may already be present before we invoke anything
		if k := marker.Detect(r.opts.Folder); k != marker.None {
			if r.handleMarker(k, log) {
				return
			}
			if !r.sleep(WaitCheckpoint) {
				r.setStatus(StatusStopped)
				return
			}
			continue
		}

		if err := r.invokeOpencode(); err != nil {
			if r.stopRequested() {
				r.setStatus(StatusStopped)
				log.Info("stop requested during opencode execution")
				return
			}
			log.Warn("opencode failed, backing off", "error", err)
			if !r.sleep(WaitBackoff) {
				r.setStatus(StatusStopped)
				return
			}
			continue
		}

		switch k := marker.Detect(r.opts.Folder); k {
		case marker.Complete, marker.Blocked:
			r.handleMarker(k, log)
			return
		case marker.Checkpoint:
			log.Info("checkpoint found, continuing")
			if err := marker.Consume(r.opts.Folder, marker.Checkpoint); err != nil {
				r.fail(err.Error())
				return
			}
			if !r.sleep(WaitCheckpoint) {
				r.setStatus(StatusStopped)
				return
			}
		default:
			// The iteration produced no marker at all. Hold and let the
			// user inspect progress before burning more attempts.
			log.Warn("no checkpoint created, holding for decision")
			if !r.holdForDecision() {
				r.setStatus(StatusStopped)
				log.Info("stopped after missing checkpoint")
				return
			}
			log.Info("continuing after missing checkpoint")
			if !r.sleep(WaitCooldown) {
				r.setStatus(StatusStopped)
				return
			}
		}
	}

	r.logger.Warn("max attempts reached without completion")
	r.mu.Lock()
	r.status = StatusFailed
	r.errMsg = errors.ErrMaxAttempts.Error()
	r.mu.Unlock()
}

// handleMarker processes a detected marker. It returns true when the
// marker ended the run. A checkpoint is consumed and returns false so the
// loop continues.
func (r *Runner) handleMarker(k marker.Kind, log *logging.Logger) bool {
	switch k {
	case marker.Complete, marker.Blocked:
		// A stray checkpoint alongside a terminal marker is noise
		if err := marker.Consume(r.opts.Folder, marker.Checkpoint); err != nil {
			log.Warn("failed to remove stray checkpoint", "error", err)
		}
		if k == marker.Complete {
			log.Info("task complete")
			r.setStatus(StatusCompleted)
		} else {
			log.Info("task blocked", "see", workspace.BlockedFile)
			r.setStatus(StatusBlocked)
		}
		return true
	case marker.Checkpoint:
		log.Info("checkpoint found, consuming")
		if err := marker.Consume(r.opts.Folder, marker.Checkpoint); err != nil {
			r.fail(err.Error())
			return true
		}
		return false
	}
	return false
}

// invokeOpencode runs one opencode invocation to completion, keeping the
// command observable so Stop/ForceKill can reach it.
func (r *Runner) invokeOpencode() error {
	prompt, err := workspace.Prompt()
	if err != nil {
		return err
	}

	// Stop handling is explicit below; the command gets a background
	// context so cancellation goes through Terminate first.
	cmd := r.opts.Client.Command(context.Background(), opencode.RunSpec{
		Dir:     r.opts.Folder,
		Model:   r.opts.Model,
		Variant: r.opts.Variant,
		Prompt:  prompt,
	})

	if err := cmd.Start(); err != nil {
		if execErr, ok := err.(*exec.Error); ok && execErr.Err == exec.ErrNotFound {
			return errors.NewOpencodeError("cannot locate binary "+r.opts.Client.Binary(), errors.ErrOpencodeNotFound).
				WithRetryable(false)
		}
		return errors.NewOpencodeError("failed to start opencode", err)
	}

	r.mu.Lock()
	r.cmd = cmd
	r.mu.Unlock()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var runErr error
	select {
	case runErr = <-waitCh:
	case <-r.stopCh:
		// Graceful first, then the hammer
		_ = opencode.Terminate(cmd)
		select {
		case runErr = <-waitCh:
		case <-time.After(5 * time.Second):
			_ = opencode.Kill(cmd)
			runErr = <-waitCh
		}
	}

	r.mu.Lock()
	r.cmd = nil
	r.mu.Unlock()

	if runErr != nil {
		return errors.NewOpencodeError("run failed", errors.ErrOpencodeFailed).
			WithExitCode(cmd.ProcessState.ExitCode())
	}
	return nil
}

// sleep waits for the configured delay, interruptible by Stop. Returns
// false when the wait was cut short by a stop.
func (r *Runner) sleep(reason WaitReason) bool {
	r.mu.Lock()
	r.waitingReason = reason
	r.waitingSince = time.Now()
	r.waitingFor = r.opts.Sleep
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.waitingReason = ""
		r.mu.Unlock()
	}()

	select {
	case <-time.After(r.opts.Sleep):
		return true
	case <-r.stopCh:
		return false
	}
}

// holdIfPaused blocks at the loop boundary while a pause is in effect.
// Returns false when a stop arrived while paused.
func (r *Runner) holdIfPaused() bool {
	r.mu.Lock()
	if !r.pauseRequest {
		r.mu.Unlock()
		return true
	}
	r.pauseRequest = false
	r.status = StatusPaused
	r.mu.Unlock()
	r.logger.Info("paused at loop boundary")

	// Drain any stale resume signal
	select {
	case <-r.resumeCh:
	default:
	}

	select {
	case <-r.resumeCh:
		r.setStatus(StatusRunning)
		r.logger.Info("resumed")
		return true
	case <-r.stopCh:
		return false
	}
}

// holdForDecision blocks until the user answers a missing-checkpoint hold.
// Returns true to continue the loop, false to stop.
func (r *Runner) holdForDecision() bool {
	r.setStatus(StatusMissingCheckpoint)

	select {
	case cont := <-r.decisionCh:
		if cont {
			r.setStatus(StatusRunning)
		}
		return cont
	case <-r.stopCh:
		return false
	}
}

func (r *Runner) stopRequested() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

func (r *Runner) setStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

func (r *Runner) setAttempt(n int) {
	r.mu.Lock()
	r.attempt = n
	r.mu.Unlock()
}

func (r *Runner) fail(msg string) {
	r.logger.Error("loop failed", "error", msg)
	r.mu.Lock()
	r.status = StatusFailed
	r.errMsg = msg
	r.mu.Unlock()
}
