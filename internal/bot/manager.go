package bot

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dotaladder/backend/internal/config"
	"github.com/dotaladder/backend/internal/dota"
	"github.com/dotaladder/backend/internal/queue"
)

// ClientFactory builds a fresh game client for each worker lifetime.
type ClientFactory func() dota.Client

// Manager keeps enough bots connected and feeds them jobs. It runs two loops:
// the pool maintainer starts workers for idle credentials until the target
// pool size of spare bots is reached, and the dispatcher pairs available bots
// with queued jobs. When nothing is idle or available both loops simply no-op
// until the next tick; that is backpressure, not an error.
type Manager struct {
	cfg       *config.Config
	pool      *CredentialPool
	queue     queue.Client
	store     Store
	pub       Publisher
	newClient ClientFactory

	mu      sync.Mutex
	workers map[string]*Worker
	wg      sync.WaitGroup
}

func NewManager(cfg *config.Config, store Store, q queue.Client, pub Publisher, factory ClientFactory) *Manager {
	return &Manager{
		cfg:       cfg,
		pool:      NewCredentialPool(cfg.BotCredentials),
		queue:     q,
		store:     store,
		pub:       pub,
		newClient: factory,
		workers:   make(map[string]*Worker),
	}
}

// Pool exposes the credential pool, mainly for tests and introspection.
func (m *Manager) Pool() *CredentialPool { return m.pool }

// Run blocks until ctx is cancelled, then waits for every worker to exit.
func (m *Manager) Run(ctx context.Context) {
	log.Printf("[MANAGER] Starting worker pool manager (pool size %d, %d credentials)",
		m.cfg.BotPoolSize, m.pool.Size())

	var loops sync.WaitGroup
	loops.Add(2)
	go func() {
		defer loops.Done()
		m.maintainPool(ctx)
	}()
	go func() {
		defer loops.Done()
		m.dispatchLoop(ctx)
	}()
	loops.Wait()

	m.wg.Wait()
	log.Printf("[MANAGER] Stopped")
}

// maintainPool tops the pool up on a slow tick.
func (m *Manager) maintainPool(ctx context.Context) {
	interval := time.Duration(m.cfg.BotPoolTickSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.topUp(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.topUp(ctx)
		}
	}
}

// topUp starts workers for idle credentials until the spare pool (starting +
// available) reaches the target size or no idle credential remains.
func (m *Manager) topUp(ctx context.Context) {
	for {
		_, starting, available, _ := m.pool.Counts()
		if starting+available >= m.cfg.BotPoolSize {
			return
		}
		cred, err := m.pool.AcquireIdle()
		if err != nil {
			return
		}

		worker := NewWorker(cred, m.newClient(), m.store, m.pool, m.pub, m.cfg)
		worker.onExit = m.workerExited
		m.mu.Lock()
		m.workers[cred.Login] = worker
		m.mu.Unlock()

		log.Printf("[MANAGER] Starting worker for credential %s", cred.Login)
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			worker.Run(ctx)
		}()
	}
}

func (m *Manager) workerExited(cred config.Credential) {
	m.mu.Lock()
	delete(m.workers, cred.Login)
	m.mu.Unlock()
	log.Printf("[MANAGER] Worker for credential %s ended", cred.Login)
}

// dispatchLoop pairs available workers with queued jobs on a fast tick.
func (m *Manager) dispatchLoop(ctx context.Context) {
	interval := time.Duration(m.cfg.BotDispatchTickSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.dispatchOne()
		}
	}
}

// dispatchOne consumes at most one job and hands it to an available worker.
// The message is acknowledged only after the hand-off succeeded; the job's
// eventual outcome never blocks the queue.
func (m *Manager) dispatchOne() {
	cred, ok := m.pool.PickAvailable()
	if !ok {
		return
	}

	job, err := m.queue.Consume()
	if err != nil {
		log.Printf("[MANAGER] Consume failed: %v", err)
		return
	}
	if job == nil {
		return
	}

	m.mu.Lock()
	worker := m.workers[cred.Login]
	m.mu.Unlock()

	if worker == nil || !worker.Assign(job) {
		log.Printf("[MANAGER] Hand-off of %s to %s failed, requeueing", job.Kind(), cred.Login)
		if err := m.queue.RequeueLast(); err != nil {
			log.Printf("[MANAGER] Requeue failed: %v", err)
		}
		return
	}

	if err := m.pool.MarkAssigned(cred); err != nil {
		log.Printf("[MANAGER] Mark assigned failed: %v", err)
	}
	if err := m.queue.AckLast(); err != nil {
		log.Printf("[MANAGER] Ack failed: %v", err)
	}
	log.Printf("[MANAGER] Dispatched %s job to %s", job.Kind(), cred.Login)
}
