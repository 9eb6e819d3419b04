package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kfcrebrand/registration/internal/domain/player"
	"github.com/kfcrebrand/registration/internal/domain/team"
)

type PlayerRepository struct {
	store *Store
}

func (r *PlayerRepository) GetByID(_ context.Context, id int64) (player.Player, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.players[id]
	return p, ok, nil
}

func (r *PlayerRepository) GetByPairing(_ context.Context, discordUserID string, osuUserID int64) (player.Player, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, p := range r.store.players {
		if p.DiscordUserID == discordUserID && p.OsuUserID == osuUserID {
			return p, true, nil
		}
	}
	return player.Player{}, false, nil
}

func (r *PlayerRepository) FindByOsuID(_ context.Context, osuUserID int64) (player.Player, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, p := range r.store.players {
		if p.OsuUserID == osuUserID {
			return p, true, nil
		}
	}
	return player.Player{}, false, nil
}

func (r *PlayerRepository) FindByDiscordID(_ context.Context, discordUserID string) (player.Player, bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, p := range r.store.players {
		if p.DiscordUserID == discordUserID {
			return p, true, nil
		}
	}
	return player.Player{}, false, nil
}

func (r *PlayerRepository) List(_ context.Context) ([]player.Player, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]player.Player, 0, len(r.store.players))
	for _, p := range r.store.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *PlayerRepository) Register(_ context.Context, p player.Player, badges []player.Badge) (player.Player, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.players {
		if existing.DiscordUserID == p.DiscordUserID && existing.OsuUserID == p.OsuUserID {
			return player.Player{}, fmt.Errorf("%w: %s", player.ErrPairingExists, existing.PairingKey())
		}
	}

	if _, ok := r.store.teams[p.TeamID]; !ok {
		r.store.teams[p.TeamID] = team.Team{Flag: p.TeamID}
	}

	p.ID = r.store.nextPlayerID
	r.store.nextPlayerID++
	r.store.players[p.ID] = p
	r.store.badges[p.ID] = append([]player.Badge(nil), badges...)

	return p, nil
}

func (r *PlayerRepository) SwitchDiscordIdentity(_ context.Context, playerID int64, discordUserID, discordUsername string) (player.Player, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.players[playerID]
	if !ok {
		return player.Player{}, fmt.Errorf("player %d not found", playerID)
	}

	p.DiscordUserID = discordUserID
	p.DiscordUsername = discordUsername
	r.store.players[playerID] = p

	return p, nil
}

func (r *PlayerRepository) SetOrganizer(_ context.Context, playerID int64, organizer bool) (player.Player, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.players[playerID]
	if !ok {
		return player.Player{}, fmt.Errorf("player %d not found", playerID)
	}

	p.IsOrganizer = organizer
	r.store.players[playerID] = p

	return p, nil
}

func (r *PlayerRepository) ReplaceStats(_ context.Context, playerID int64, rank, rankBWS *int64, updatedAt time.Time, badges []player.Badge) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.players[playerID]
	if !ok {
		return fmt.Errorf("player %d not found", playerID)
	}

	p.OsuRank = rank
	p.OsuRankBWS = rankBWS
	p.OsuStatsUpdated = updatedAt
	r.store.players[playerID] = p
	r.store.badges[playerID] = append([]player.Badge(nil), badges...)

	return nil
}

func (r *PlayerRepository) ListBadges(_ context.Context, playerID int64) ([]player.Badge, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return append([]player.Badge(nil), r.store.badges[playerID]...), nil
}

func (r *PlayerRepository) Delete(_ context.Context, playerID int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.players[playerID]; !ok {
		return fmt.Errorf("player %d not found", playerID)
	}

	delete(r.store.players, playerID)
	delete(r.store.badges, playerID)

	return nil
}

func (r *PlayerRepository) IsDisqualified(_ context.Context, osuUserID int64) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	_, banned := r.store.disqualified[osuUserID]
	return banned, nil
}
