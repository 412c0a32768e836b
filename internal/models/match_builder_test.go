package models

import (
	"database/sql"
	"strings"
	"testing"
)

func draftUsers(mmrs ...int) []User {
	users := make([]User, len(mmrs))
	for i, mmr := range mmrs {
		users[i] = User{
			ID:      uint64(100 + i),
			SoloMMR: sql.NullInt64{Int64: int64(mmr), Valid: true},
		}
	}
	return users
}

func TestBuildMatchSplitsTeamsEvenly(t *testing.T) {
	users := draftUsers(6000, 5500, 5000, 4500, 4000, 3500, 3000, 2500, 2000, 1500)
	votes := make([]int, len(users))

	draft := BuildMatch(LadderMedium, users, votes)

	if len(draft.Players) != 10 {
		t.Fatalf("players = %d, want 10", len(draft.Players))
	}

	radiant, dire := 0, 0
	sums := map[bool]int{}
	slots := map[bool]map[int]bool{true: {}, false: {}}
	for _, p := range draft.Players {
		if p.IsRadiant {
			radiant++
		} else {
			dire++
		}
		sums[p.IsRadiant] += p.MMR
		if slots[p.IsRadiant][p.TeamSlot] {
			t.Errorf("duplicate slot %d on team radiant=%v", p.TeamSlot, p.IsRadiant)
		}
		slots[p.IsRadiant][p.TeamSlot] = true
		if p.TeamSlot < 1 || p.TeamSlot > 5 {
			t.Errorf("slot %d out of range", p.TeamSlot)
		}
	}
	if radiant != 5 || dire != 5 {
		t.Fatalf("team split %d/%d, want 5/5", radiant, dire)
	}

	diff := sums[true] - sums[false]
	if diff < 0 {
		diff = -diff
	}
	// Greedy assignment on this spread keeps the sums within one player.
	if diff > 1500 {
		t.Errorf("team MMR sums differ by %d: %d vs %d", diff, sums[true], sums[false])
	}
}

func TestBuildMatchPassword(t *testing.T) {
	draft := BuildMatch(LadderHigh, draftUsers(4000, 3000), []int{0, 0})
	if !strings.HasPrefix(draft.Password, "dz_") || len(draft.Password) != 7 {
		t.Errorf("password = %q, want dz_ prefix and 4 random characters", draft.Password)
	}
}

func TestBuildMatchModePlurality(t *testing.T) {
	users := draftUsers(4000, 3900, 3800)
	votes := []int{
		EncodeModeVote(false, true, false),
		EncodeModeVote(false, true, true),
		EncodeModeVote(true, false, false),
	}

	draft := BuildMatch(LadderMedium, users, votes)
	if draft.Mode != "rd" {
		t.Errorf("mode = %q, want rd (2 votes against 1 each)", draft.Mode)
	}
}

func TestBuildMatchModeTieBreak(t *testing.T) {
	users := draftUsers(4000, 3900)
	votes := []int{
		EncodeModeVote(true, false, false),
		EncodeModeVote(false, true, false),
	}

	draft := BuildMatch(LadderMedium, users, votes)
	if draft.Mode != "ap" && draft.Mode != "rd" {
		t.Errorf("mode = %q, want one of the tied modes", draft.Mode)
	}
}

func TestEncodeModeVote(t *testing.T) {
	if got := EncodeModeVote(true, false, true); got != ModeVoteAllDraft|ModeVoteCaptainsDraft {
		t.Errorf("EncodeModeVote = %d", got)
	}
	if got := EncodeModeVote(false, false, false); got != 0 {
		t.Errorf("empty vote = %d, want 0", got)
	}
}
