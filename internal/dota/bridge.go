package dota

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Bridge drives one Steam/Dota session through the session sidecar. Actions
// go out as JSON frames, client events come back as JSON frames and are
// translated onto the Events channel.
type Bridge struct {
	url    string
	events chan Event

	mu      sync.Mutex
	conn    *websocket.Conn
	steamID uint64
}

var _ Client = (*Bridge)(nil)

// NewBridge creates a bridge client for the sidecar at url. One bridge serves
// one credential for one connection lifetime.
func NewBridge(url string) *Bridge {
	return &Bridge{
		url:    url,
		events: make(chan Event, 64),
	}
}

// action is an outbound frame.
type action struct {
	Action    string        `json:"action"`
	Login     string        `json:"login,omitempty"`
	Password  string        `json:"password,omitempty"`
	SteamID   uint64        `json:"steam_id,omitempty"`
	AccountID uint32        `json:"account_id,omitempty"`
	LobbyPass string        `json:"lobby_password,omitempty"`
	Options   *LobbyOptions `json:"options,omitempty"`
}

// frame is an inbound frame.
type frame struct {
	Event   string       `json:"event"`
	SteamID uint64       `json:"steam_id,omitempty"`
	Lobby   *Lobby       `json:"lobby,omitempty"`
	Card    *ProfileCard `json:"card,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// Connect dials the sidecar, retrying forever with a flat delay. A permanently
// down sidecar stalls only this credential, never the pool.
func (b *Bridge) Connect(ctx context.Context) {
	go func() {
		for {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, nil)
			if err == nil {
				b.mu.Lock()
				b.conn = conn
				b.mu.Unlock()
				b.events <- ConnectedEvent{}
				go b.readLoop(conn)
				return
			}
			log.Printf("[BRIDGE] Dial %s failed: %v (retrying)", b.url, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(10*time.Second + time.Duration(rand.Intn(5000))*time.Millisecond):
			}
		}
	}()
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			b.events <- DisconnectedEvent{Err: err}
			return
		}

		switch f.Event {
		case "logged_on":
			b.mu.Lock()
			b.steamID = f.SteamID
			b.mu.Unlock()
			b.events <- LoggedOnEvent{}
		case "ready":
			b.events <- ReadyEvent{}
		case "not_ready":
			b.events <- NotReadyEvent{}
		case "lobby_new":
			if f.Lobby != nil {
				b.events <- LobbyNewEvent{Lobby: *f.Lobby}
			}
		case "lobby_changed":
			if f.Lobby != nil {
				b.events <- LobbyChangedEvent{Lobby: *f.Lobby}
			}
		case "profile_card":
			if f.Card != nil {
				b.events <- ProfileCardEvent{Card: *f.Card}
			}
		case "error":
			log.Printf("[BRIDGE] Sidecar error: %s", f.Error)
		default:
			log.Printf("[BRIDGE] Unknown event %q ignored", f.Event)
		}
	}
}

func (b *Bridge) send(a action) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		log.Printf("[BRIDGE] Dropping %q: not connected", a.Action)
		return
	}
	if err := b.conn.WriteJSON(a); err != nil {
		log.Printf("[BRIDGE] Send %q failed: %v", a.Action, err)
	}
}

func (b *Bridge) Login(login, password string) {
	b.send(action{Action: "login", Login: login, Password: password})
}

func (b *Bridge) LaunchGame() {
	b.send(action{Action: "launch_game"})
}

func (b *Bridge) Disconnect() {
	b.mu.Lock()
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (b *Bridge) SteamID() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.steamID
}

func (b *Bridge) Events() <-chan Event { return b.events }

func (b *Bridge) RequestProfileCard(accountID uint32) {
	b.send(action{Action: "request_profile_card", AccountID: accountID})
}

func (b *Bridge) CreateLobby(password string) {
	b.send(action{Action: "create_lobby", LobbyPass: password})
}

func (b *Bridge) ConfigureLobby(options LobbyOptions) {
	b.send(action{Action: "configure_lobby", Options: &options})
}

func (b *Bridge) JoinLobbyTeam() {
	b.send(action{Action: "join_lobby_team"})
}

func (b *Bridge) Invite(steamID uint64) {
	b.send(action{Action: "invite", SteamID: steamID})
}

func (b *Bridge) Kick(accountID uint32) {
	b.send(action{Action: "kick", AccountID: accountID})
}

func (b *Bridge) KickFromTeam(accountID uint32) {
	b.send(action{Action: "kick_from_team", AccountID: accountID})
}

func (b *Bridge) LaunchLobby() {
	b.send(action{Action: "launch_lobby"})
}

func (b *Bridge) LeaveLobby() {
	b.send(action{Action: "leave_lobby"})
}
