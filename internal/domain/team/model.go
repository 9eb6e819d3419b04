package team

import (
	"errors"
	"fmt"

	"github.com/kfcrebrand/registration/internal/domain/player"
)

// ErrConflictingMembership is returned by repositories when the roster /
// backup-roster mutual-exclusion constraint rejects a membership write.
var ErrConflictingMembership = errors.New("player cannot be both in roster and backup roster at the same time")

// Team groups players registered under one flag code.
type Team struct {
	Flag string
}

func (t Team) Validate() error {
	if t.Flag == "" {
		return fmt.Errorf("team flag is required")
	}
	if len(t.Flag) > 4 {
		return fmt.Errorf("team flag cannot exceed 4 characters")
	}

	return nil
}

// Membership is the resolved view of one team's roster state.
type Membership struct {
	Flag       string
	Roster     []player.Player
	Backups    []player.Player
	Candidates []player.Player
}

// Captain returns the roster member flagged as captain, if any.
func (m Membership) Captain() (player.Player, bool) {
	for _, p := range m.Roster {
		if p.IsCaptain {
			return p, true
		}
	}
	return player.Player{}, false
}
