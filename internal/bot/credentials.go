package bot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dotaladder/backend/internal/config"
)

// CredState tracks where a credential is in its lifecycle. Every credential
// is in exactly one state at any instant and the total count never changes
// while the process runs.
type CredState int

const (
	// CredIdle: in the pool, unused.
	CredIdle CredState = iota
	// CredStarting: a worker is establishing its external connection.
	CredStarting
	// CredAvailable: connected and waiting for a job.
	CredAvailable
	// CredAssigned: bound to an in-progress job.
	CredAssigned
)

func (s CredState) String() string {
	switch s {
	case CredIdle:
		return "idle"
	case CredStarting:
		return "starting"
	case CredAvailable:
		return "available"
	case CredAssigned:
		return "assigned"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// ErrPoolEmpty signals that no idle credential remains.
var ErrPoolEmpty = errors.New("no idle credential in pool")

// CredentialPool guards the exclusivity of the configured Steam credentials.
// All bookkeeping lives behind one mutex; callers never iterate the raw map.
type CredentialPool struct {
	mu     sync.Mutex
	creds  map[string]config.Credential
	states map[string]CredState
}

// NewCredentialPool loads the configured credentials, all idle.
func NewCredentialPool(creds []config.Credential) *CredentialPool {
	p := &CredentialPool{
		creds:  make(map[string]config.Credential, len(creds)),
		states: make(map[string]CredState, len(creds)),
	}
	for _, c := range creds {
		p.creds[c.Login] = c
		p.states[c.Login] = CredIdle
	}
	return p
}

// Size is the constant total credential count.
func (p *CredentialPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.creds)
}

// AcquireIdle takes an arbitrary idle credential and moves it to starting.
// Selection order carries no meaning; all credentials are interchangeable.
func (p *CredentialPool) AcquireIdle() (config.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for login, state := range p.states {
		if state == CredIdle {
			p.states[login] = CredStarting
			return p.creds[login], nil
		}
	}
	return config.Credential{}, ErrPoolEmpty
}

// MarkAvailable moves starting -> available once the external handshake
// completed.
func (p *CredentialPool) MarkAvailable(cred config.Credential) error {
	return p.transition(cred.Login, CredStarting, CredAvailable)
}

// MarkStarting moves available -> starting when the client drops back to
// not-ready; no job may be assigned until it is ready again.
func (p *CredentialPool) MarkStarting(cred config.Credential) error {
	return p.transition(cred.Login, CredAvailable, CredStarting)
}

// MarkAssigned moves available -> assigned when a job is handed over.
func (p *CredentialPool) MarkAssigned(cred config.Credential) error {
	return p.transition(cred.Login, CredAvailable, CredAssigned)
}

// Release returns a credential to idle after a job, regardless of outcome.
func (p *CredentialPool) Release(cred config.Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.states[cred.Login]; ok {
		p.states[cred.Login] = CredIdle
	}
}

func (p *CredentialPool) transition(login string, from, to CredState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.states[login]
	if !ok {
		return fmt.Errorf("unknown credential %q", login)
	}
	if state != from {
		return fmt.Errorf("credential %q is %s, not %s", login, state, from)
	}
	p.states[login] = to
	return nil
}

// PickAvailable returns an arbitrary available credential without changing
// its state; the caller marks it assigned after the hand-off succeeds.
func (p *CredentialPool) PickAvailable() (config.Credential, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for login, state := range p.states {
		if state == CredAvailable {
			return p.creds[login], true
		}
	}
	return config.Credential{}, false
}

// Counts reports how many credentials sit in each state.
func (p *CredentialPool) Counts() (idle, starting, available, assigned int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, state := range p.states {
		switch state {
		case CredIdle:
			idle++
		case CredStarting:
			starting++
		case CredAvailable:
			available++
		case CredAssigned:
			assigned++
		}
	}
	return
}
