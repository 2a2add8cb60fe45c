package campaign

import (
	"fmt"

	"whatsapp-console/internal/models"
)

// CanTransition reports whether a campaign may move between lifecycle states.
//
//	draft   --start-->  running
//	running --pause-->  paused
//	running --(done)--> completed
//	running --(fail)--> failed
//	paused  --resume--> running
//	paused  --stop-->   completed
//
// completed and failed are terminal.
func CanTransition(from, to string) bool {
	switch from {
	case models.CampaignStatusDraft:
		return to == models.CampaignStatusRunning
	case models.CampaignStatusRunning:
		return to == models.CampaignStatusPaused ||
			to == models.CampaignStatusCompleted ||
			to == models.CampaignStatusFailed
	case models.CampaignStatusPaused:
		return to == models.CampaignStatusRunning ||
			to == models.CampaignStatusCompleted
	}
	return false
}

// Transition moves the campaign to the requested state or fails without
// mutating it.
func Transition(c *models.Campaign, to string) error {
	if !CanTransition(c.Status, to) {
		return fmt.Errorf("illegal campaign transition %s -> %s", c.Status, to)
	}
	c.Status = to
	return nil
}
