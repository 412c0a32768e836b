package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/dotaladder/backend/internal/dota"
	"github.com/dotaladder/backend/internal/models"
	"github.com/dotaladder/backend/internal/queue"
)

// runScan requests the user's profile card and waits for the asynchronous
// answer, re-requesting on timeout. It is intentionally persistent: the loop
// only ends when the card arrives, the client disconnects or the process
// shuts down.
func (w *Worker) runScan(ctx context.Context, job queue.ScanProfile) {
	accountID := dota.AccountID(job.SteamID)
	for {
		w.logf("Requesting profile for user %d", job.SteamID)
		w.client.RequestProfileCard(accountID)

		timer := time.NewTimer(w.scanTimeout)
		waiting := true
		for waiting {
			select {
			case <-ctx.Done():
				timer.Stop()
				return

			case <-timer.C:
				// No answer, ask again.
				waiting = false

			case ev, ok := <-w.client.Events():
				if !ok {
					timer.Stop()
					return
				}
				switch ev := ev.(type) {
				case dota.ProfileCardEvent:
					if ev.Card.AccountID != accountID {
						continue
					}
					timer.Stop()
					w.logf("Processing profile of user %d", job.SteamID)
					if err := w.commitScan(job.SteamID, ev.Card); err != nil {
						w.logf("Scan of user %d failed: %v", job.SteamID, err)
					}
					return
				case dota.DisconnectedEvent:
					timer.Stop()
					return
				}
			}
		}
	}
}

// commitScan extracts the solo rating from the card, recomputes the user's
// ladder section and persists both with the scan timestamp.
func (w *Worker) commitScan(steamID uint64, card dota.ProfileCard) error {
	var solo *int
	for _, slot := range card.Slots {
		if slot.StatID == dota.SoloRatingStatID {
			score := slot.StatScore
			solo = &score
		}
	}

	user, err := w.store.GetUser(steamID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %d not found", steamID)
	}

	current := ""
	if user.Section.Valid {
		current = user.Section.String
	}

	// A card without the rating slot keeps the stored rating; the section is
	// still recomputed from whatever rating is known.
	effective := solo
	if effective == nil && user.SoloMMR.Valid {
		known := int(user.SoloMMR.Int64)
		effective = &known
	}

	section := ""
	if effective != nil {
		section = SectionForRating(*effective, current)
	}

	return w.store.CommitScanResult(steamID, solo, section)
}

// SectionForRating places a rating into a ladder section. Above 5000 always
// plays high; below 3000 starts in low but an already placed player is never
// demoted there; everything else plays medium unless already high.
func SectionForRating(rating int, current string) string {
	switch {
	case rating > 5000:
		return models.LadderHigh
	case rating < 3000 && current == "":
		return models.LadderLow
	default:
		if current == models.LadderHigh {
			return models.LadderHigh
		}
		return models.LadderMedium
	}
}
