package bot

import (
	"context"
	"log"
	"time"

	"github.com/dotaladder/backend/internal/config"
	"github.com/dotaladder/backend/internal/dota"
	"github.com/dotaladder/backend/internal/queue"
)

// Worker owns one credential for the length of one job: it connects the game
// client, waits for a job from the manager, drives the job protocol, then
// disconnects and returns the credential to the pool.
//
// All client events are consumed by a single loop per worker, strictly in
// arrival order; job protocols run inside that loop, so no two stages of the
// same job ever interleave.
type Worker struct {
	cred   config.Credential
	client dota.Client
	store  Store
	pool   *CredentialPool
	pub    Publisher

	jobs   chan queue.Job
	onExit func(cred config.Credential)

	inviteTimeout   time.Duration
	waitTick        time.Duration
	scanTimeout     time.Duration
	postGamePoll    time.Duration
	postGameTimeout time.Duration
}

// NewWorker binds a fresh worker to a credential acquired from the pool.
func NewWorker(cred config.Credential, client dota.Client, store Store, pool *CredentialPool, pub Publisher, cfg *config.Config) *Worker {
	return &Worker{
		cred:   cred,
		client: client,
		store:  store,
		pool:   pool,
		pub:    pub,
		jobs:   make(chan queue.Job, 1),

		inviteTimeout:   time.Duration(cfg.InviteTimeoutMinutes) * time.Minute,
		waitTick:        time.Duration(cfg.WaitTickSeconds) * time.Second,
		scanTimeout:     time.Duration(cfg.ScanTimeoutSeconds) * time.Second,
		postGamePoll:    time.Duration(cfg.PostGamePollSeconds) * time.Second,
		postGameTimeout: time.Duration(cfg.PostGameTimeoutMinutes) * time.Minute,
	}
}

// Assign hands a job to the worker. It reports false when the worker cannot
// take it, in which case the message must not be acknowledged.
func (w *Worker) Assign(job queue.Job) bool {
	select {
	case w.jobs <- job:
		return true
	default:
		return false
	}
}

func (w *Worker) logf(format string, args ...interface{}) {
	log.Printf("[BOT] "+w.cred.Login+": "+format, args...)
}

// Run is the worker's whole life: connect, become available, process one job,
// disconnect. The credential is released on every exit path.
func (w *Worker) Run(ctx context.Context) {
	defer func() {
		w.client.Disconnect()
		w.pool.Release(w.cred)
		if w.onExit != nil {
			w.onExit(w.cred)
		}
	}()

	w.logf("Connecting to Steam...")
	w.client.Connect(ctx)

	available := false
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.client.Events():
			if !ok {
				return
			}
			switch ev := ev.(type) {
			case dota.ConnectedEvent:
				w.logf("Connected to Steam, logging in")
				w.client.Login(w.cred.Login, w.cred.Password)
			case dota.LoggedOnEvent:
				w.logf("Logged on, launching game client")
				w.client.LaunchGame()
			case dota.ReadyEvent:
				w.logf("Game client is ready")
				if !available {
					if err := w.pool.MarkAvailable(w.cred); err != nil {
						w.logf("Mark available failed: %v", err)
					} else {
						available = true
					}
				}
			case dota.NotReadyEvent:
				w.logf("Game client dropped to not ready")
				if available {
					if err := w.pool.MarkStarting(w.cred); err != nil {
						w.logf("Mark starting failed: %v", err)
					} else {
						available = false
					}
				}
			case dota.DisconnectedEvent:
				w.logf("Disconnected: %v", ev.Err)
				return
			}

		case job := <-w.jobs:
			w.process(ctx, job)
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, job queue.Job) {
	w.logf("Processing new job of type %s", job.Kind())
	switch j := job.(type) {
	case queue.ScanProfile:
		w.runScan(ctx, j)
	case queue.CreateMatch:
		newMatchSession(w, j.MatchID).run(ctx)
	default:
		w.logf("Unknown job %T dropped", job)
	}
	w.logf("Job ended")
}

func (w *Worker) publish(ctx context.Context, event MatchEvent) {
	if w.pub != nil {
		w.pub.PublishMatchEvent(ctx, event)
	}
}
