package app

import (
	"bufio"
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"sabor_menu/internal/domain"
)

// Deploy job states.
const (
	DeployIdle    = "idle"
	DeployRunning = "running"
	DeployDone    = "done"
	DeployError   = "error"
)

const deployLogLines = 200

// DeployStatus is the polled snapshot of the background job.
type DeployStatus struct {
	State      string     `json:"state"`
	Step       string     `json:"step,omitempty"`
	RunID      string     `json:"run_id,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
	Log        []string   `json:"log,omitempty"`
}

// Deployer runs the configured shell steps on a background goroutine.
// The semaphore makes the job single-flight: a trigger while one run is
// in progress is rejected, never queued.
type Deployer struct {
	steps []string
	gate  *semaphore.Weighted

	mu         sync.Mutex
	state      string
	step       string
	runID      string
	startedAt  time.Time
	finishedAt time.Time
	errMsg     string
	ring       []string // last deployLogLines lines
}

func NewDeployer(steps []string) *Deployer {
	return &Deployer{
		steps: steps,
		gate:  semaphore.NewWeighted(1),
		state: DeployIdle,
	}
}

// Run starts a deploy in the background. Returns the run id, or
// ErrConflict when a run is already in progress.
func (d *Deployer) Run() (string, error) {
	if !d.gate.TryAcquire(1) {
		return "", domain.ErrConflict
	}
	id := uuid.NewString()
	d.mu.Lock()
	d.state = DeployRunning
	d.step = ""
	d.runID = id
	d.startedAt = time.Now()
	d.finishedAt = time.Time{}
	d.errMsg = ""
	d.ring = nil
	d.mu.Unlock()

	go d.run(id)
	return id, nil
}

func (d *Deployer) run(id string) {
	defer d.gate.Release(1)
	log.Info().Str("run_id", id).Int("steps", len(d.steps)).Msg("deploy started")

	for _, step := range d.steps {
		d.setStep(step)
		if err := d.execStep(step); err != nil {
			d.finish(DeployError, err.Error())
			log.Error().Err(err).Str("run_id", id).Str("step", step).Msg("deploy failed")
			return
		}
	}
	d.finish(DeployDone, "")
	log.Info().Str("run_id", id).Msg("deploy finished")
}

func (d *Deployer) execStep(step string) error {
	cmd := exec.Command("sh", "-c", step)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return err
	}
	sc := bufio.NewScanner(stdout)
	for sc.Scan() {
		d.appendLog(sc.Text())
	}
	return cmd.Wait()
}

func (d *Deployer) setStep(step string) {
	d.mu.Lock()
	d.step = step
	d.mu.Unlock()
	d.appendLog("$ " + step)
}

func (d *Deployer) appendLog(line string) {
	d.mu.Lock()
	d.ring = append(d.ring, line)
	if len(d.ring) > deployLogLines {
		d.ring = d.ring[len(d.ring)-deployLogLines:]
	}
	d.mu.Unlock()
}

func (d *Deployer) finish(state, errMsg string) {
	d.mu.Lock()
	d.state = state
	d.errMsg = errMsg
	d.finishedAt = time.Now()
	d.mu.Unlock()
}

// Status returns a snapshot; withLog controls whether the trailing log
// lines are included.
func (d *Deployer) Status(withLog bool) DeployStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := DeployStatus{
		State: d.state,
		Step:  d.step,
		RunID: d.runID,
		Error: d.errMsg,
	}
	if !d.startedAt.IsZero() {
		t := d.startedAt
		st.StartedAt = &t
	}
	if !d.finishedAt.IsZero() {
		t := d.finishedAt
		st.FinishedAt = &t
	}
	if withLog {
		st.Log = append([]string(nil), d.ring...)
	}
	return st
}

// Wait blocks until no run is in flight. Test helper.
func (d *Deployer) Wait(ctx context.Context) error {
	if err := d.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	d.gate.Release(1)
	return nil
}
