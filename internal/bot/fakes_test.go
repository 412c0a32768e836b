package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dotaladder/backend/internal/config"
	"github.com/dotaladder/backend/internal/dota"
	"github.com/dotaladder/backend/internal/models"
	"github.com/dotaladder/backend/internal/queue"
)

// fakeClient is a scriptable game client: tests preload or push events and
// inspect the recorded calls.
type fakeClient struct {
	mu      sync.Mutex
	steamID uint64
	events  chan dota.Event

	loggedIn     bool
	launchedGame bool
	createdLobby []string
	options      []dota.LobbyOptions
	joinedTeam   bool
	invited      []uint64
	kicked       []uint32
	teamKicks    []uint32
	launched     bool
	left         bool
	requests     []uint32
}

func newFakeClient(steamID uint64) *fakeClient {
	return &fakeClient{steamID: steamID, events: make(chan dota.Event, 64)}
}

func (c *fakeClient) push(ev dota.Event) { c.events <- ev }

func (c *fakeClient) Connect(ctx context.Context) {}

func (c *fakeClient) Login(login, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loggedIn = true
}

func (c *fakeClient) LaunchGame() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.launchedGame = true
}

func (c *fakeClient) Disconnect() {}

func (c *fakeClient) SteamID() uint64           { return c.steamID }
func (c *fakeClient) Events() <-chan dota.Event { return c.events }

func (c *fakeClient) RequestProfileCard(accountID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, accountID)
}

func (c *fakeClient) requestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *fakeClient) CreateLobby(password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createdLobby = append(c.createdLobby, password)
}

func (c *fakeClient) ConfigureLobby(options dota.LobbyOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.options = append(c.options, options)
}

func (c *fakeClient) JoinLobbyTeam() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joinedTeam = true
}

func (c *fakeClient) Invite(steamID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invited = append(c.invited, steamID)
}

func (c *fakeClient) Kick(accountID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kicked = append(c.kicked, accountID)
}

func (c *fakeClient) KickFromTeam(accountID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teamKicks = append(c.teamKicks, accountID)
}

func (c *fakeClient) LaunchLobby() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.launched = true
}

func (c *fakeClient) LeaveLobby() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.left = true
}

type dodgeCall struct {
	matchID    uint32
	fromStatus int
	penalized  map[uint64]bool
}

type endgameCall struct {
	matchID uint32
	outcome int
	members []uint64
	leavers []uint64
}

type scanCall struct {
	steamID uint64
	soloMMR *int
	section string
}

// fakeStore is an in-memory stand-in for the persistence gateway.
type fakeStore struct {
	mu      sync.Mutex
	match   *models.Match
	players []models.PlayerInMatch
	user    *models.User

	denyTransition bool
	transitions    [][2]int
	server         string
	dodge          *dodgeCall
	endgame        *endgameCall
	scans          []scanCall
}

func (s *fakeStore) GetMatch(matchID uint32) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.match == nil || s.match.ID != matchID {
		return nil, nil
	}
	copy := *s.match
	return &copy, nil
}

func (s *fakeStore) GetMatchPlayers(matchID uint32) ([]models.PlayerInMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PlayerInMatch(nil), s.players...), nil
}

func (s *fakeStore) TransitionMatchStatus(matchID uint32, from, to int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.denyTransition || s.match == nil || s.match.Status != from {
		return false, nil
	}
	s.match.Status = to
	s.transitions = append(s.transitions, [2]int{from, to})
	return true, nil
}

func (s *fakeStore) SetMatchServer(matchID uint32, server string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = server
	return nil
}

func (s *fakeStore) ResolveDodge(matchID uint32, fromStatus int, penalized map[uint64]bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.match == nil || s.match.Status != fromStatus {
		return false, nil
	}
	s.match.Status = models.MatchStatusCancelled
	s.dodge = &dodgeCall{matchID: matchID, fromStatus: fromStatus, penalized: penalized}
	return true, nil
}

func (s *fakeStore) ResolveEndgame(matchID uint32, outcome int, memberIDs, leaverIDs []uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.match == nil || s.match.Status != models.MatchStatusInProgress {
		return false, nil
	}
	s.match.Status = models.MatchStatusEnded
	s.endgame = &endgameCall{matchID: matchID, outcome: outcome, members: memberIDs, leavers: leaverIDs}
	return true, nil
}

func (s *fakeStore) GetUser(steamID uint64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != steamID {
		return nil, nil
	}
	copy := *s.user
	return &copy, nil
}

func (s *fakeStore) CommitScanResult(steamID uint64, soloMMR *int, section string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans = append(s.scans, scanCall{steamID: steamID, soloMMR: soloMMR, section: section})
	return nil
}

// fakePublisher records published match events.
type fakePublisher struct {
	mu     sync.Mutex
	events []MatchEvent
}

func (p *fakePublisher) PublishMatchEvent(ctx context.Context, event MatchEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// fakeQueue feeds a fixed job list and records the ack decisions.
type fakeQueue struct {
	jobs     []queue.Job
	consumed int
	acked    int
	requeued int
}

func (q *fakeQueue) Produce(job queue.Job) error { return nil }

func (q *fakeQueue) Consume() (queue.Job, error) {
	if q.consumed >= len(q.jobs) {
		return nil, nil
	}
	job := q.jobs[q.consumed]
	q.consumed++
	return job, nil
}

func (q *fakeQueue) AckLast() error {
	q.acked++
	return nil
}

func (q *fakeQueue) RequeueLast() error {
	q.requeued++
	return nil
}

func (q *fakeQueue) Close() error { return nil }

func jobForMatch(id uint32) queue.Job { return queue.CreateMatch{MatchID: id} }

// testContext is cancelled at test end so background workers exit.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// newTestWorker builds a worker with millisecond timings around a one
// credential pool.
func newTestWorker(client dota.Client, st Store, pub Publisher) (*Worker, *CredentialPool) {
	cred := config.Credential{Login: "ladderbot1", Password: "hunter2"}
	pool := NewCredentialPool([]config.Credential{cred})
	w := &Worker{
		cred:   cred,
		client: client,
		store:  st,
		pool:   pool,
		pub:    pub,
		jobs:   make(chan queue.Job, 1),

		inviteTimeout:   60 * time.Millisecond,
		waitTick:        5 * time.Millisecond,
		scanTimeout:     20 * time.Millisecond,
		postGamePoll:    5 * time.Millisecond,
		postGameTimeout: 60 * time.Millisecond,
	}
	return w, pool
}
