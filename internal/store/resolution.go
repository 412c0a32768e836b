package store

import "github.com/dotaladder/backend/internal/models"

// dodgeMMR returns the rating after a dodge resolution: penalized players pay
// the dodge penalty floored at 0, everyone else keeps their rating.
func dodgeMMR(mmrBefore int, penalized bool) int {
	if penalized {
		return floorMMR(mmrBefore - models.MMRDodgePenalty)
	}
	return mmrBefore
}

// playerOutcome is the settled result of one player at endgame. At most one of
// Won, Lost and Left holds.
type playerOutcome struct {
	MMRAfter int
	Won      bool
	Lost     bool
	Left     bool
}

// endgameOutcome settles one player from the reported outcome code. Lobby
// members win or lose by side; a mid-game leaver pays the leave penalty
// instead of either. A player on neither list keeps their rating, as does a
// member under an unknown outcome code.
func endgameOutcome(mmrBefore int, isRadiant bool, outcome int, member, leaver bool) playerOutcome {
	out := playerOutcome{MMRAfter: mmrBefore}
	if leaver {
		out.Left = true
		out.MMRAfter = floorMMR(mmrBefore - models.MMRLeavePenalty)
		return out
	}
	if !member {
		return out
	}
	switch {
	case (isRadiant && outcome == models.MatchOutcomeRadiantWin) ||
		(!isRadiant && outcome == models.MatchOutcomeDireWin):
		out.Won = true
		out.MMRAfter = mmrBefore + models.MMRWinDelta
	case (isRadiant && outcome == models.MatchOutcomeDireWin) ||
		(!isRadiant && outcome == models.MatchOutcomeRadiantWin):
		out.Lost = true
		out.MMRAfter = floorMMR(mmrBefore - models.MMRLossPenalty)
	}
	return out
}

func floorMMR(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
