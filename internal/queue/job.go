package queue

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the job variants on the wire.
type Kind string

const (
	KindScanProfile Kind = "ScanProfile"
	KindCreateMatch Kind = "CreateMatch"
)

// Job is an order passed from the web application to the Dota bots.
// Each variant carries only the fields meaningful for its kind.
type Job interface {
	Kind() Kind
}

// ScanProfile asks a bot to fetch the Dota profile of a user and refresh
// the stored rating and ladder section.
type ScanProfile struct {
	SteamID uint64
}

func (ScanProfile) Kind() Kind { return KindScanProfile }

// CreateMatch asks a bot to host the lobby for a match and record its outcome.
type CreateMatch struct {
	MatchID uint32
}

func (CreateMatch) Kind() Kind { return KindCreateMatch }

// envelope is the wire form: {type, steam_id?, match_id?}.
type envelope struct {
	Type    Kind   `json:"type"`
	SteamID uint64 `json:"steam_id,omitempty"`
	MatchID uint32 `json:"match_id,omitempty"`
}

// Marshal serializes a job into its wire envelope.
func Marshal(job Job) ([]byte, error) {
	env := envelope{Type: job.Kind()}
	switch j := job.(type) {
	case ScanProfile:
		env.SteamID = j.SteamID
	case CreateMatch:
		env.MatchID = j.MatchID
	default:
		return nil, fmt.Errorf("unknown job type %T", job)
	}
	return json.Marshal(env)
}

// Unmarshal parses a wire envelope back into the matching job variant.
func Unmarshal(data []byte) (Job, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid job payload: %w", err)
	}
	switch env.Type {
	case KindScanProfile:
		return ScanProfile{SteamID: env.SteamID}, nil
	case KindCreateMatch:
		return CreateMatch{MatchID: env.MatchID}, nil
	default:
		return nil, fmt.Errorf("unknown job kind %q", env.Type)
	}
}
