package bot

import (
	"context"
	"testing"
	"time"

	"github.com/dotaladder/backend/internal/dota"
	"github.com/dotaladder/backend/internal/models"
)

const testBotID uint64 = 999

func testMatchPlayers() []models.PlayerInMatch {
	return []models.PlayerInMatch{
		{PlayerID: 101, MatchID: 7, IsRadiant: true, TeamSlot: 1},
		{PlayerID: 102, MatchID: 7, IsRadiant: true, TeamSlot: 2},
		{PlayerID: 103, MatchID: 7, IsRadiant: false, TeamSlot: 1},
		{PlayerID: 104, MatchID: 7, IsRadiant: false, TeamSlot: 2},
	}
}

// seatedMembers returns every expected player in their assigned slot, plus the
// bot itself.
func seatedMembers() []dota.Member {
	return []dota.Member{
		{SteamID: testBotID, Team: dota.TeamBroadcaster},
		{SteamID: 101, Team: dota.TeamRadiant, Slot: 1},
		{SteamID: 102, Team: dota.TeamRadiant, Slot: 2},
		{SteamID: 103, Team: dota.TeamDire, Slot: 1},
		{SteamID: 104, Team: dota.TeamDire, Slot: 2},
	}
}

func testMatchStore() *fakeStore {
	return &fakeStore{
		match:   &models.Match{ID: 7, Status: models.MatchStatusCreation, Password: "dz_abcd", Mode: "ap"},
		players: testMatchPlayers(),
	}
}

func TestMatchSessionHappyPath(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	pub := &fakePublisher{}
	w, _ := newTestWorker(client, st, pub)

	client.push(dota.LobbyNewEvent{Lobby: dota.Lobby{State: dota.LobbyStateUI, Members: seatedMembers()}})
	client.push(dota.LobbyChangedEvent{Lobby: dota.Lobby{
		State: dota.LobbyStateRun, Members: seatedMembers(), Connect: "=[192.168.1.5:27015]",
	}})
	client.push(dota.LobbyChangedEvent{Lobby: dota.Lobby{
		State:        dota.LobbyStatePostGame,
		MatchOutcome: models.MatchOutcomeRadiantWin,
		Members:      seatedMembers(),
		Connect:      "=[192.168.1.5:27015]",
		LeftMembers:  []dota.Member{{SteamID: 104}},
	}})

	newMatchSession(w, 7).run(context.Background())

	if len(client.createdLobby) != 1 || client.createdLobby[0] != "dz_abcd" {
		t.Fatalf("lobby not created with match password: %v", client.createdLobby)
	}
	if !client.joinedTeam || !client.launched || !client.left {
		t.Errorf("lobby lifecycle incomplete: joined=%v launched=%v left=%v",
			client.joinedTeam, client.launched, client.left)
	}
	if len(client.options) != 1 || client.options[0].GameMode != dota.GameModeAllDraft {
		t.Errorf("unexpected lobby options: %+v", client.options)
	}
	if st.server != "192.168.1.5:27015" {
		t.Errorf("server not extracted from connect string, got %q", st.server)
	}
	if st.match.Status != models.MatchStatusEnded {
		t.Fatalf("match status = %d, want Ended", st.match.Status)
	}
	if st.endgame == nil {
		t.Fatal("endgame never resolved")
	}
	if st.endgame.outcome != models.MatchOutcomeRadiantWin {
		t.Errorf("outcome = %d, want radiant win", st.endgame.outcome)
	}
	if len(st.endgame.members) != 4 {
		t.Errorf("members = %v, want the 4 players without the bot", st.endgame.members)
	}
	for _, id := range st.endgame.members {
		if id == testBotID {
			t.Errorf("bot %d reported as match member", id)
		}
	}
	if len(st.endgame.leavers) != 1 || st.endgame.leavers[0] != 104 {
		t.Errorf("leavers = %v, want [104]", st.endgame.leavers)
	}

	want := []string{"waiting_for_players", "in_progress", "ended"}
	got := pub.types()
	if len(got) != len(want) {
		t.Fatalf("published events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
	if pub.events[1].Server != "192.168.1.5:27015" {
		t.Errorf("in_progress event server = %q, want the captured address", pub.events[1].Server)
	}
}

func TestMatchSessionDisconnectMidWaitAbandons(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	pub := &fakePublisher{}
	w, _ := newTestWorker(client, st, pub)

	// Player 104 is still missing when the client drops; that is not a dodge.
	client.push(dota.LobbyNewEvent{Lobby: dota.Lobby{State: dota.LobbyStateUI, Members: seatedMembers()[:4]}})
	client.push(dota.DisconnectedEvent{})

	newMatchSession(w, 7).run(context.Background())

	if st.dodge != nil {
		t.Errorf("disconnect mid wait resolved as dodge: %+v", st.dodge)
	}
	if st.match.Status != models.MatchStatusWaitingForPlayers {
		t.Errorf("match status = %d, want WaitingForPlayers left for redelivery", st.match.Status)
	}
	for _, typ := range pub.types() {
		if typ == "cancelled" {
			t.Errorf("cancel event published on disconnect")
		}
	}
}

func TestMatchSessionShutdownMidWaitAbandons(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	w, _ := newTestWorker(client, st, &fakePublisher{})
	w.inviteTimeout = time.Hour // the deadline must never be the reason to exit

	client.push(dota.LobbyNewEvent{Lobby: dota.Lobby{State: dota.LobbyStateUI, Members: seatedMembers()[:4]}})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	newMatchSession(w, 7).run(ctx)

	if st.dodge != nil {
		t.Errorf("shutdown mid wait resolved as dodge: %+v", st.dodge)
	}
	if st.match.Status == models.MatchStatusCancelled {
		t.Errorf("shutdown cancelled the match")
	}
}

func TestAwaitGameEndAbortsOnDisconnect(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	w, _ := newTestWorker(client, st, &fakePublisher{})

	s := newMatchSession(w, 7)
	s.lobby = dota.Lobby{State: dota.LobbyStateRun}
	s.haveLobby = true
	client.push(dota.DisconnectedEvent{})

	if got := s.awaitGameEnd(context.Background()); got != endAborted {
		t.Errorf("awaitGameEnd after disconnect = %d, want aborted", got)
	}
}

func TestAwaitGameEndAbortsOnShutdown(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	w, _ := newTestWorker(client, st, &fakePublisher{})
	w.postGameTimeout = time.Hour

	s := newMatchSession(w, 7)
	s.lobby = dota.Lobby{State: dota.LobbyStateRun}
	s.haveLobby = true

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	if got := s.awaitGameEnd(ctx); got != endAborted {
		t.Errorf("awaitGameEnd after shutdown = %d, want aborted", got)
	}
}

func TestMatchSessionStaleJobIsNoOp(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	st.match.Status = models.MatchStatusWaitingForPlayers
	w, _ := newTestWorker(client, st, &fakePublisher{})

	newMatchSession(w, 7).run(context.Background())

	if len(client.createdLobby) != 0 {
		t.Errorf("stale job still created a lobby")
	}
	if st.match.Status != models.MatchStatusWaitingForPlayers {
		t.Errorf("stale job touched the match status: %d", st.match.Status)
	}
}

func TestMatchSessionUnknownMatchIsNoOp(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	w, _ := newTestWorker(client, st, &fakePublisher{})

	newMatchSession(w, 42).run(context.Background())

	if len(client.createdLobby) != 0 {
		t.Errorf("job for unknown match still created a lobby")
	}
}

func TestMatchSessionAbandonsWhenStatusLost(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	st.denyTransition = true
	w, _ := newTestWorker(client, st, &fakePublisher{})

	client.push(dota.LobbyNewEvent{Lobby: dota.Lobby{State: dota.LobbyStateUI, Members: seatedMembers()}})

	newMatchSession(w, 7).run(context.Background())

	if client.launched {
		t.Errorf("lobby launched after losing the status race")
	}
	if st.dodge != nil || st.endgame != nil {
		t.Errorf("resolution ran after losing the status race")
	}
	if !client.left {
		t.Errorf("lobby not left on abandon")
	}
}

func TestMatchSessionDodgeOnMissingPlayer(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	pub := &fakePublisher{}
	w, _ := newTestWorker(client, st, pub)

	members := seatedMembers()[:4] // player 104 never shows up
	client.push(dota.LobbyNewEvent{Lobby: dota.Lobby{State: dota.LobbyStateUI, Members: members}})

	newMatchSession(w, 7).run(context.Background())

	if st.match.Status != models.MatchStatusCancelled {
		t.Fatalf("match status = %d, want Cancelled", st.match.Status)
	}
	if st.dodge == nil {
		t.Fatal("dodge never resolved")
	}
	if st.dodge.fromStatus != models.MatchStatusWaitingForPlayers {
		t.Errorf("dodge resolved from status %d, want WaitingForPlayers", st.dodge.fromStatus)
	}
	if len(st.dodge.penalized) != 1 || !st.dodge.penalized[104] {
		t.Errorf("penalized = %v, want only 104", st.dodge.penalized)
	}

	invited := false
	for _, id := range client.invited {
		if id == 104 {
			invited = true
		}
	}
	if !invited {
		t.Errorf("missing player 104 never invited")
	}
	if client.launched {
		t.Errorf("lobby launched despite missing player")
	}

	got := pub.types()
	if len(got) != 2 || got[0] != "waiting_for_players" || got[1] != "cancelled" {
		t.Errorf("published events = %v, want [waiting_for_players cancelled]", got)
	}
}

func TestMatchSessionNoLoadCancels(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	pub := &fakePublisher{}
	w, _ := newTestWorker(client, st, pub)

	// Everyone sits down but the lobby never leaves the UI state after launch.
	client.push(dota.LobbyNewEvent{Lobby: dota.Lobby{State: dota.LobbyStateUI, Members: seatedMembers()}})

	newMatchSession(w, 7).run(context.Background())

	if !client.launched {
		t.Fatalf("lobby never launched")
	}
	if st.dodge == nil {
		t.Fatal("no-load not resolved as dodge")
	}
	if st.dodge.fromStatus != models.MatchStatusInProgress {
		t.Errorf("dodge resolved from status %d, want InProgress", st.dodge.fromStatus)
	}
	if len(st.dodge.penalized) != 0 {
		t.Errorf("penalized = %v, want nobody (all were seated)", st.dodge.penalized)
	}
	if st.match.Status != models.MatchStatusCancelled {
		t.Errorf("match status = %d, want Cancelled", st.match.Status)
	}
}

func TestMatchSessionPostGameBoundExpires(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	w, _ := newTestWorker(client, st, &fakePublisher{})

	client.push(dota.LobbyNewEvent{Lobby: dota.Lobby{State: dota.LobbyStateUI, Members: seatedMembers()}})
	// Stuck in the run state forever.
	client.push(dota.LobbyChangedEvent{Lobby: dota.Lobby{State: dota.LobbyStateRun, Members: seatedMembers()}})

	start := time.Now()
	newMatchSession(w, 7).run(context.Background())

	if time.Since(start) < w.postGameTimeout {
		t.Errorf("session returned before the post-game bound")
	}
	if st.dodge == nil || st.dodge.fromStatus != models.MatchStatusInProgress {
		t.Errorf("expired post-game bound not resolved as in-progress cancel: %+v", st.dodge)
	}
}

func TestComputePresenceKickPolicy(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	w, _ := newTestWorker(client, st, &fakePublisher{})

	s := newMatchSession(w, 7)
	s.players = make(map[uint64]models.PlayerInMatch)
	for _, p := range testMatchPlayers() {
		s.players[p.PlayerID] = p
	}
	s.lobby = dota.Lobby{Members: []dota.Member{
		{SteamID: testBotID, Team: dota.TeamBroadcaster},
		{SteamID: 101, Team: dota.TeamRadiant, Slot: 1}, // correct
		{SteamID: 102, Team: dota.TeamDire, Slot: 2},    // wrong side, kick from team
		{SteamID: 103, Team: dota.TeamPlayerPool},       // undecided, leave alone
		{SteamID: 555, Team: dota.TeamRadiant, Slot: 3}, // stranger, kick out
	}}

	s.computePresence()

	if !s.missing[104] || len(s.missing) != 1 {
		t.Errorf("missing = %v, want only 104", s.missing)
	}
	if !s.wrongTeam[102] || !s.wrongTeam[103] || len(s.wrongTeam) != 2 {
		t.Errorf("wrongTeam = %v, want 102 and 103", s.wrongTeam)
	}
	if len(s.kickFromTeam) != 1 || s.kickFromTeam[0] != dota.AccountID(102) {
		t.Errorf("kickFromTeam = %v, want only account of 102", s.kickFromTeam)
	}
	if len(s.strangers) != 1 || s.strangers[0] != dota.AccountID(555) {
		t.Errorf("strangers = %v, want only account of 555", s.strangers)
	}
}

func TestCaptureServerFallsBackToServerID(t *testing.T) {
	client := newFakeClient(testBotID)
	st := testMatchStore()
	w, _ := newTestWorker(client, st, &fakePublisher{})

	s := newMatchSession(w, 7)
	s.lobby = dota.Lobby{ServerID: "90071996842861234"}
	s.haveLobby = true

	s.captureServer(context.Background())

	if st.server != "90071996842861234" {
		t.Errorf("server = %q, want the server id fallback", st.server)
	}
}
