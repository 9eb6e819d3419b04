package team

import (
	"fmt"
	"time"
)

// RosterPolicy is the immutable window and sizing configuration for roster
// edits. It is built once from configuration at startup and passed into the
// roster service; nothing mutates it afterwards.
type RosterPolicy struct {
	RegistrationStart time.Time
	// RegistrationEnd closes new sign-ups, which the bridge enforces
	// before calling login. The edit-window check deliberately ignores
	// it: roster edits stay open from RegistrationStart until
	// SelectionEnd.
	RegistrationEnd *time.Time
	SelectionEnd    time.Time

	RosterSizeMin int
	RosterSizeMax int
	BackupSizeMax int
}

// DefaultPolicy mirrors the usual tournament format: eight mains, two backups.
func DefaultPolicy() RosterPolicy {
	return RosterPolicy{
		RosterSizeMin: 6,
		RosterSizeMax: 8,
		BackupSizeMax: 2,
	}
}

func (p RosterPolicy) Validate() error {
	if p.RosterSizeMin < 0 {
		return fmt.Errorf("roster size min must be >= 0")
	}
	if p.RosterSizeMax < p.RosterSizeMin {
		return fmt.Errorf("roster size max must be >= roster size min")
	}
	if p.BackupSizeMax < 0 {
		return fmt.Errorf("backup size max must be >= 0")
	}
	if !p.SelectionEnd.IsZero() && !p.RegistrationStart.IsZero() && p.SelectionEnd.Before(p.RegistrationStart) {
		return fmt.Errorf("selection end cannot precede registration start")
	}

	return nil
}
