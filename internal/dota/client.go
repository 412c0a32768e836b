// Package dota exposes the external game-client capability the bots drive:
// connect, log in, host a lobby, watch it change, launch it, leave it. The
// actual Steam/Dota session runs in a sidecar process reached over a
// websocket bridge; this package only defines the capability surface and the
// bridge client.
package dota

import "context"

// Lobby team codes.
const (
	TeamRadiant     = 0
	TeamDire        = 1
	TeamBroadcaster = 2
	TeamSpectator   = 3
	TeamPlayerPool  = 4
)

// Lobby state codes.
const (
	LobbyStateUI          = 0
	LobbyStateServerSetup = 1
	LobbyStateRun         = 2
	LobbyStatePostGame    = 3
	LobbyStateReadyUp     = 4
	LobbyStateNotReady    = 5
)

// Game mode codes for lobby options.
const (
	GameModeAllDraft      = 22
	GameModeRandomDraft   = 3
	GameModeCaptainsDraft = 16
)

// ServerRegionEurope is the only region the ladder plays on.
const ServerRegionEurope = 3

// Member is one occupant of a lobby.
type Member struct {
	SteamID uint64 `json:"steam_id"`
	Team    int    `json:"team"`
	Slot    int    `json:"slot"`
	Name    string `json:"name"`
}

// Lobby is a snapshot of the hosted lobby state.
type Lobby struct {
	ID           uint64   `json:"id"`
	State        int      `json:"state"`
	Connect      string   `json:"connect"`
	ServerID     string   `json:"server_id"`
	MatchOutcome int      `json:"match_outcome"`
	Members      []Member `json:"members"`
	LeftMembers  []Member `json:"left_members"`
}

// LobbyOptions are the fixed settings applied to every hosted lobby.
type LobbyOptions struct {
	GameName      string `json:"game_name"`
	PassKey       string `json:"pass_key"`
	GameMode      int    `json:"game_mode"`
	ServerRegion  int    `json:"server_region"`
	FillWithBots  bool   `json:"fill_with_bots"`
	AllowSpectate bool   `json:"allow_spectating"`
	AllowCheats   bool   `json:"allow_cheats"`
	AllChat       bool   `json:"allchat"`
	DotaTVDelay   int    `json:"dota_tv_delay"`
	PauseSetting  int    `json:"pause_setting"`
}

// ProfileCard carries the stat slots of a scanned profile.
type ProfileCard struct {
	AccountID uint32     `json:"account_id"`
	Slots     []CardSlot `json:"slots"`
}

// CardSlot is one stat entry of a profile card. Stat id 1 is the solo rating.
type CardSlot struct {
	StatID    int `json:"stat_id"`
	StatScore int `json:"stat_score"`
}

// SoloRatingStatID identifies the rating slot inside a profile card.
const SoloRatingStatID = 1

// Event is anything the game client reports back. Events of one client are
// consumed strictly in arrival order by a single worker loop.
type Event interface {
	isEvent()
}

// ConnectedEvent fires when the transport is up; login comes next.
type ConnectedEvent struct{}

// LoggedOnEvent fires when the credential was accepted.
type LoggedOnEvent struct{}

// ReadyEvent fires when the game client is ready to take orders.
type ReadyEvent struct{}

// NotReadyEvent fires when the client dropped back to not-ready, e.g. on a
// network hiccup.
type NotReadyEvent struct{}

// LobbyNewEvent fires once when the hosted lobby exists.
type LobbyNewEvent struct{ Lobby Lobby }

// LobbyChangedEvent fires on every lobby state change.
type LobbyChangedEvent struct{ Lobby Lobby }

// ProfileCardEvent answers a RequestProfileCard call.
type ProfileCardEvent struct{ Card ProfileCard }

// DisconnectedEvent fires when the transport dropped for good.
type DisconnectedEvent struct{ Err error }

func (ConnectedEvent) isEvent()    {}
func (LoggedOnEvent) isEvent()     {}
func (ReadyEvent) isEvent()        {}
func (NotReadyEvent) isEvent()     {}
func (LobbyNewEvent) isEvent()     {}
func (LobbyChangedEvent) isEvent() {}
func (ProfileCardEvent) isEvent()  {}
func (DisconnectedEvent) isEvent() {}

// Client is the opaque game-client capability one worker owns for the length
// of a job. Implementations must deliver events on a single channel in the
// order they happened.
type Client interface {
	// Connect establishes the transport and retries forever until ctx is
	// cancelled. Progress is reported through events.
	Connect(ctx context.Context)
	Login(login, password string)
	LaunchGame()
	Disconnect()

	// SteamID reports the bot's own id, so lobby scans can skip it.
	SteamID() uint64
	Events() <-chan Event

	RequestProfileCard(accountID uint32)
	CreateLobby(password string)
	ConfigureLobby(options LobbyOptions)
	JoinLobbyTeam()
	Invite(steamID uint64)
	Kick(accountID uint32)
	KickFromTeam(accountID uint32)
	LaunchLobby()
	LeaveLobby()
}

// AccountID converts a 64-bit steam id to its 32-bit account form used by
// kick and profile calls.
func AccountID(steamID uint64) uint32 {
	return uint32(steamID & 0xFFFFFFFF)
}
