package models

import (
	"math/rand"
	"sort"
	"time"
)

// MatchDraft is a fully built match ready for insertion: two balanced teams,
// a lobby password and a voted game mode.
type MatchDraft struct {
	Section  string
	Password string
	Mode     string
	Created  time.Time
	Players  []DraftPlayer
}

// DraftPlayer is one assigned slot of a match draft.
type DraftPlayer struct {
	UserID    uint64
	MMR       int
	IsRadiant bool
	TeamSlot  int
}

type draftCandidate struct {
	UserID   uint64
	MMR      int
	ModeVote int
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// BuildMatch assembles a match draft from queued players of one section.
// Players are taken in descending MMR order and greedily assigned to the team
// with the lower MMR sum, so both sides end close in total rating. The game
// mode is decided by plurality of the queue votes, ties broken randomly.
func BuildMatch(section string, users []User, votes []int) MatchDraft {
	candidates := make([]draftCandidate, 0, len(users))
	for i, u := range users {
		mmr := 0
		if u.SoloMMR.Valid {
			mmr = int(u.SoloMMR.Int64)
		}
		vote := 0
		if i < len(votes) {
			vote = votes[i]
		}
		candidates = append(candidates, draftCandidate{UserID: u.ID, MMR: mmr, ModeVote: vote})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].MMR > candidates[j].MMR })

	draft := MatchDraft{
		Section:  section,
		Password: lobbyPassword(),
		Mode:     voteMode(candidates),
		Created:  time.Now(),
	}

	teamSize := len(candidates) / 2
	sums := map[bool]int{true: 0, false: 0}
	count := map[bool]int{true: 0, false: 0}
	isRadiant := true
	for _, c := range candidates {
		if count[isRadiant] >= teamSize ||
			(sums[isRadiant] > sums[!isRadiant] && count[!isRadiant] < teamSize) {
			isRadiant = !isRadiant
		}
		sums[isRadiant] += c.MMR
		count[isRadiant]++
		draft.Players = append(draft.Players, DraftPlayer{
			UserID:    c.UserID,
			MMR:       c.MMR,
			IsRadiant: isRadiant,
			TeamSlot:  count[isRadiant],
		})
	}
	return draft
}

func lobbyPassword() string {
	pw := []byte("dz_")
	for i := 0; i < 4; i++ {
		pw = append(pw, passwordAlphabet[rand.Intn(len(passwordAlphabet))])
	}
	return string(pw)
}

func voteMode(candidates []draftCandidate) string {
	count := map[string]int{"ap": 0, "rd": 0, "cd": 0}
	flags := map[string]int{"ap": ModeVoteAllDraft, "rd": ModeVoteRandomDraft, "cd": ModeVoteCaptainsDraft}
	for _, c := range candidates {
		for mode, flag := range flags {
			if c.ModeVote&flag != 0 {
				count[mode]++
			}
		}
	}

	best := -1
	var modes []string
	// Deterministic iteration so ties collect the same candidate set every run.
	for _, mode := range []string{"ap", "rd", "cd"} {
		switch {
		case count[mode] > best:
			best = count[mode]
			modes = []string{mode}
		case count[mode] == best:
			modes = append(modes, mode)
		}
	}
	return modes[rand.Intn(len(modes))]
}
