package memory

import (
	"context"
	"sort"

	"github.com/kfcrebrand/registration/internal/domain/player"
	"github.com/kfcrebrand/registration/internal/domain/team"
)

type TeamRepository struct {
	store *Store
}

func (r *TeamRepository) List(_ context.Context) ([]team.Team, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]team.Team, 0, len(r.store.teams))
	for _, t := range r.store.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Flag < out[j].Flag })

	return out, nil
}

func (r *TeamRepository) GetByFlag(_ context.Context, flag string) (team.Team, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	t, ok := r.store.teams[flag]
	return t, ok, nil
}

func (r *TeamRepository) GetOrCreate(_ context.Context, flag string) (team.Team, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if t, ok := r.store.teams[flag]; ok {
		return t, nil
	}

	t := team.Team{Flag: flag}
	r.store.teams[flag] = t

	return t, nil
}

func (r *TeamRepository) Membership(_ context.Context, flag string) (team.Membership, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return r.membershipLocked(flag), nil
}

// UpdateMembership rebuilds the roster flags for one team. The edit is
// staged on copies and only written back once every row passes
// validation, so a rejected edit leaves the previous state untouched.
func (r *TeamRepository) UpdateMembership(_ context.Context, flag string, rosterIDs, backupIDs []int64, captainID *int64) (team.Membership, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	roster := make(map[int64]struct{}, len(rosterIDs))
	for _, id := range rosterIDs {
		roster[id] = struct{}{}
	}
	backups := make(map[int64]struct{}, len(backupIDs))
	for _, id := range backupIDs {
		backups[id] = struct{}{}
	}

	staged := make(map[int64]player.Player)
	for id, p := range r.store.players {
		if p.TeamID != flag {
			continue
		}

		_, inRoster := roster[p.ID]
		_, inBackup := backups[p.ID]
		p.InRoster = inRoster
		p.InBackupRoster = inBackup
		p.IsCaptain = inRoster && captainID != nil && *captainID == p.ID

		if p.InRoster && p.InBackupRoster {
			return team.Membership{}, team.ErrConflictingMembership
		}
		if err := p.Validate(); err != nil {
			return team.Membership{}, err
		}

		staged[id] = p
	}

	for id, p := range staged {
		r.store.players[id] = p
	}

	return r.membershipLocked(flag), nil
}

func (r *TeamRepository) membershipLocked(flag string) team.Membership {
	m := team.Membership{Flag: flag}

	for _, p := range r.store.players {
		if p.TeamID != flag {
			continue
		}
		switch {
		case p.InRoster:
			m.Roster = append(m.Roster, p)
		case p.InBackupRoster:
			m.Backups = append(m.Backups, p)
		default:
			m.Candidates = append(m.Candidates, p)
		}
	}

	byID := func(list []player.Player) {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}
	byID(m.Roster)
	byID(m.Backups)
	byID(m.Candidates)

	return m
}
