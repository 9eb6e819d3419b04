package memory

import (
	"sync"

	"github.com/kfcrebrand/registration/internal/domain/player"
	"github.com/kfcrebrand/registration/internal/domain/team"
)

// Store is the shared in-memory backing for the player and team
// repositories. Both views lock the same store so cross-entity writes
// (registration creating a team, roster edits touching players) stay
// consistent, mirroring what the SQL schema enforces.
type Store struct {
	mu           sync.RWMutex
	nextPlayerID int64
	players      map[int64]player.Player
	badges       map[int64][]player.Badge
	teams        map[string]team.Team
	disqualified map[int64]struct{}
}

func NewStore() *Store {
	return &Store{
		nextPlayerID: 1,
		players:      make(map[int64]player.Player),
		badges:       make(map[int64][]player.Badge),
		teams:        make(map[string]team.Team),
		disqualified: make(map[int64]struct{}),
	}
}

func (s *Store) Players() *PlayerRepository { return &PlayerRepository{store: s} }

func (s *Store) Teams() *TeamRepository { return &TeamRepository{store: s} }

// Disqualify bans an osu user id from registering.
func (s *Store) Disqualify(osuUserID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disqualified[osuUserID] = struct{}{}
}
