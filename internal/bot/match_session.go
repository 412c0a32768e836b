package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dotaladder/backend/internal/dota"
	"github.com/dotaladder/backend/internal/models"
)

// lobbyCreateTimeout bounds the wait for the lobby-created callback.
const lobbyCreateTimeout = 2 * time.Minute

// waitOutcome is the result of the player-wait loop. Only a deadline expiry
// may punish players; a disconnect or shutdown abandons the job without
// touching the store, leaving recovery to queue redelivery.
type waitOutcome int

const (
	waitReady waitOutcome = iota
	waitExpired
	waitAborted
)

// endOutcome is the result of the play-out wait.
type endOutcome int

const (
	endPostGame endOutcome = iota
	endNoLoad
	endAborted
)

// matchSession drives one CreateMatch job: host the lobby, herd the players
// into their slots, launch, and settle the scoreboards from the outcome.
// Match and player rows are snapshotted up front; every status write is a
// conditional transition so a concurrent admin cancel or a redelivered job
// turns the rest of the session into a no-op.
type matchSession struct {
	w       *Worker
	matchID uint32

	match     *models.Match
	players   map[uint64]models.PlayerInMatch
	lobby     dota.Lobby
	haveLobby bool

	missing      map[uint64]bool
	wrongTeam    map[uint64]bool
	kickFromTeam []uint32
	strangers    []uint32
}

func newMatchSession(w *Worker, matchID uint32) *matchSession {
	return &matchSession{w: w, matchID: matchID}
}

func (s *matchSession) logf(format string, args ...interface{}) {
	w := s.w
	w.logf("match %d: %s", s.matchID, fmt.Sprintf(format, args...))
}

func (s *matchSession) run(ctx context.Context) {
	defer s.w.client.LeaveLobby()

	// Load guard: a match already past Creation means this message is stale
	// (redelivery after a crash, or an admin moved it); complete as a no-op.
	match, err := s.w.store.GetMatch(s.matchID)
	if err != nil {
		s.logf("load failed: %v", err)
		return
	}
	if match == nil || match.Status != models.MatchStatusCreation {
		s.logf("not in creation status, skipping stale job")
		return
	}

	players, err := s.w.store.GetMatchPlayers(s.matchID)
	if err != nil {
		s.logf("load players failed: %v", err)
		return
	}

	// Snapshot, detached from the store: no transaction stays open across
	// the lobby waits.
	s.match = match
	s.players = make(map[uint64]models.PlayerInMatch, len(players))
	for _, p := range players {
		s.players[p.PlayerID] = p
	}

	s.logf("hosting game")
	s.w.client.CreateLobby(match.Password)
	if !s.awaitLobby(ctx) {
		s.logf("lobby never appeared, abandoning")
		return
	}

	s.configureLobby()
	ok, err := s.w.store.TransitionMatchStatus(s.matchID, models.MatchStatusCreation, models.MatchStatusWaitingForPlayers)
	if err != nil || !ok {
		s.logf("lost creation status (err=%v), abandoning", err)
		return
	}
	s.w.publish(ctx, MatchEvent{Type: "waiting_for_players", MatchID: s.matchID})

	switch s.waitForPlayers(ctx) {
	case waitReady:
	case waitExpired:
		s.logf("cancelled because of dodge")
		s.resolveDodge(ctx, models.MatchStatusWaitingForPlayers)
		return
	default:
		s.logf("aborted mid wait, leaving recovery to redelivery")
		return
	}

	ok, err = s.w.store.TransitionMatchStatus(s.matchID, models.MatchStatusWaitingForPlayers, models.MatchStatusInProgress)
	if err != nil || !ok {
		s.logf("lost waiting status (err=%v), abandoning", err)
		return
	}
	s.logf("all players present, launching")
	s.w.client.LaunchLobby()
	server := s.captureServer(ctx)
	s.w.publish(ctx, MatchEvent{Type: "in_progress", MatchID: s.matchID, Server: server})

	switch s.awaitGameEnd(ctx) {
	case endPostGame:
		s.resolveEndgame(ctx)
	case endNoLoad:
		// Players never loaded in (or the post-game bound expired): same
		// punishment as a dodge before start.
		s.logf("no load, cancelling")
		s.resolveDodge(ctx, models.MatchStatusInProgress)
	default:
		s.logf("aborted mid game, leaving recovery to redelivery")
	}
}

// awaitLobby blocks until the lobby-created callback, tracking every event in
// arrival order.
func (s *matchSession) awaitLobby(ctx context.Context) bool {
	timer := time.NewTimer(lobbyCreateTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return false
		case ev, ok := <-s.w.client.Events():
			if !ok {
				return false
			}
			if !s.handleEvent(ev) {
				return false
			}
			if s.haveLobby {
				return true
			}
		}
	}
}

// handleEvent folds one client event into the session. Returns false when the
// session cannot continue.
func (s *matchSession) handleEvent(ev dota.Event) bool {
	switch ev := ev.(type) {
	case dota.LobbyNewEvent:
		s.lobby = ev.Lobby
		s.haveLobby = true
	case dota.LobbyChangedEvent:
		s.lobby = ev.Lobby
		s.haveLobby = true
	case dota.DisconnectedEvent:
		s.logf("disconnected mid job: %v", ev.Err)
		return false
	}
	return true
}

// drainEvents applies every pending event without blocking.
func (s *matchSession) drainEvents() bool {
	for {
		select {
		case ev, ok := <-s.w.client.Events():
			if !ok {
				return false
			}
			if !s.handleEvent(ev) {
				return false
			}
		default:
			return true
		}
	}
}

func (s *matchSession) configureLobby() {
	s.logf("lobby created, setup")
	s.w.client.JoinLobbyTeam()

	modeCode := dota.GameModeAllDraft
	switch s.match.Mode {
	case "rd":
		modeCode = dota.GameModeRandomDraft
	case "cd":
		modeCode = dota.GameModeCaptainsDraft
	}

	s.w.client.ConfigureLobby(dota.LobbyOptions{
		GameName:      fmt.Sprintf("Ladder Game %d", s.match.ID),
		PassKey:       s.match.Password,
		GameMode:      modeCode,
		ServerRegion:  dota.ServerRegionEurope,
		FillWithBots:  false,
		AllowSpectate: true,
		AllowCheats:   false,
		AllChat:       false,
		DotaTVDelay:   2,
		PauseSetting:  1,
	})
}

// waitForPlayers runs the invite/kick loop until everyone sits in their slot
// or the invite deadline expires. Disconnect and shutdown abort the wait
// without a verdict on the players.
func (s *matchSession) waitForPlayers(ctx context.Context) waitOutcome {
	deadline := time.Now().Add(s.w.inviteTimeout)
	for {
		if !s.drainEvents() {
			return waitAborted
		}
		s.computePresence()
		if len(s.missing) == 0 && len(s.wrongTeam) == 0 {
			return waitReady
		}
		if !time.Now().Before(deadline) {
			return waitExpired
		}
		s.logf("%s before cancel, %d missing, %d misplaced",
			time.Until(deadline).Round(time.Second), len(s.missing), len(s.wrongTeam))
		s.applyPresenceActions()

		select {
		case <-ctx.Done():
			return waitAborted
		case <-time.After(s.w.waitTick):
		}
	}
}

// computePresence classifies the lobby occupants against the player snapshot:
// expected players not in the lobby are missing; expected players on the
// wrong side or slot are wrong-team (kicked from the team only once they left
// the neutral pool); anyone else is a stranger and is kicked outright.
func (s *matchSession) computePresence() {
	s.missing = make(map[uint64]bool, len(s.players))
	s.wrongTeam = make(map[uint64]bool)
	s.kickFromTeam = nil
	s.strangers = nil

	for id := range s.players {
		s.missing[id] = true
	}

	botID := s.w.client.SteamID()
	for _, member := range s.lobby.Members {
		if member.SteamID == botID {
			continue
		}
		player, expected := s.players[member.SteamID]
		if !expected {
			s.strangers = append(s.strangers, dota.AccountID(member.SteamID))
			continue
		}
		delete(s.missing, member.SteamID)

		goodSlot := member.Slot == player.TeamSlot
		goodTeam := (member.Team == dota.TeamRadiant && player.IsRadiant) ||
			(member.Team == dota.TeamDire && !player.IsRadiant)
		if goodTeam && goodSlot {
			continue
		}
		s.wrongTeam[member.SteamID] = true
		if member.Team != dota.TeamPlayerPool {
			s.kickFromTeam = append(s.kickFromTeam, dota.AccountID(member.SteamID))
		}
	}
}

func (s *matchSession) applyPresenceActions() {
	for id := range s.missing {
		s.w.client.Invite(id)
	}
	for _, accountID := range s.kickFromTeam {
		s.w.client.KickFromTeam(accountID)
	}
	for _, accountID := range s.strangers {
		s.w.client.Kick(accountID)
	}
}

// captureServer records and returns the game server address once the lobby
// launched, empty when none could be read.
func (s *matchSession) captureServer(ctx context.Context) string {
	select {
	case <-ctx.Done():
		return ""
	case <-time.After(s.w.waitTick):
	}
	if !s.drainEvents() {
		return ""
	}

	server := ""
	if connect := s.lobby.Connect; connect != "" {
		if strings.HasPrefix(connect, "=[") && strings.HasSuffix(connect, "]") {
			server = connect[2 : len(connect)-1]
		} else {
			server = connect
		}
	} else if s.lobby.ServerID != "" {
		server = s.lobby.ServerID
	}
	if server == "" {
		return ""
	}
	if err := s.w.store.SetMatchServer(s.matchID, server); err != nil {
		s.logf("set server failed: %v", err)
	}
	return server
}

// awaitGameEnd polls the lobby state until it reaches the pre-game UI (no
// load) or post-game, bounded by the configured post-game timeout which
// resolves as no-load. Disconnect and shutdown abort without a verdict.
func (s *matchSession) awaitGameEnd(ctx context.Context) endOutcome {
	deadline := time.Now().Add(s.w.postGameTimeout)
	for {
		if !s.drainEvents() {
			return endAborted
		}
		switch s.lobby.State {
		case dota.LobbyStateUI:
			return endNoLoad
		case dota.LobbyStatePostGame:
			return endPostGame
		}
		if !time.Now().Before(deadline) {
			s.logf("post-game bound expired in lobby state %d", s.lobby.State)
			return endNoLoad
		}
		select {
		case <-ctx.Done():
			return endAborted
		case <-time.After(s.w.postGamePoll):
		}
	}
}

// resolveDodge recomputes presence and punishes everyone still missing or
// misplaced.
func (s *matchSession) resolveDodge(ctx context.Context, fromStatus int) {
	s.drainEvents()
	s.computePresence()

	penalized := make(map[uint64]bool, len(s.missing)+len(s.wrongTeam))
	for id := range s.missing {
		penalized[id] = true
	}
	for id := range s.wrongTeam {
		penalized[id] = true
	}

	applied, err := s.w.store.ResolveDodge(s.matchID, fromStatus, penalized)
	if err != nil {
		s.logf("dodge resolution failed: %v", err)
		return
	}
	if !applied {
		s.logf("dodge resolution skipped, status already moved")
		return
	}
	s.w.publish(ctx, MatchEvent{Type: "cancelled", MatchID: s.matchID})
}

// resolveEndgame settles scoreboards from the reported outcome.
func (s *matchSession) resolveEndgame(ctx context.Context) {
	s.logf("game over, outcome %d", s.lobby.MatchOutcome)

	botID := s.w.client.SteamID()
	var members []uint64
	for _, member := range s.lobby.Members {
		if member.SteamID == botID {
			continue
		}
		members = append(members, member.SteamID)
	}
	var leavers []uint64
	for _, member := range s.lobby.LeftMembers {
		leavers = append(leavers, member.SteamID)
	}

	applied, err := s.w.store.ResolveEndgame(s.matchID, s.lobby.MatchOutcome, members, leavers)
	if err != nil {
		s.logf("endgame resolution failed: %v", err)
		return
	}
	if !applied {
		s.logf("endgame resolution skipped, status already moved")
		return
	}

	var radiantWin *bool
	switch s.lobby.MatchOutcome {
	case models.MatchOutcomeRadiantWin:
		v := true
		radiantWin = &v
	case models.MatchOutcomeDireWin:
		v := false
		radiantWin = &v
	}
	s.w.publish(ctx, MatchEvent{Type: "ended", MatchID: s.matchID, RadiantWin: radiantWin})
}
