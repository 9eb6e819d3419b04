package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/kfcrebrand/registration/internal/domain/team"
)

// MembershipUpdate carries the raw roster edit payload. Fields stay
// undecoded so absent keys and wrongly typed values produce different
// errors.
type MembershipUpdate struct {
	Players json.RawMessage `json:"players"`
	Backups json.RawMessage `json:"backups"`
	Captain json.RawMessage `json:"captain"`
}

// RosterService applies roster edits within the configured window.
type RosterService struct {
	teamRepo team.Repository
	policy   team.RosterPolicy
	logger   *slog.Logger
	now      func() time.Time
}

func NewRosterService(teamRepo team.Repository, policy team.RosterPolicy, logger *slog.Logger) *RosterService {
	if logger == nil {
		logger = slog.Default()
	}

	return &RosterService{
		teamRepo: teamRepo,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// Teams lists every team flag currently known.
func (s *RosterService) Teams(ctx context.Context) ([]team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.Teams")
	defer span.End()

	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	return teams, nil
}

// Membership returns the current roster state for one team.
func (s *RosterService) Membership(ctx context.Context, flag string) (team.Membership, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.Membership")
	defer span.End()

	flag = strings.TrimSpace(flag)
	if flag == "" {
		return team.Membership{}, fmt.Errorf("%w: team flag is required", ErrInvalidInput)
	}

	if _, ok, err := s.teamRepo.GetByFlag(ctx, flag); err != nil {
		return team.Membership{}, fmt.Errorf("get team: %w", err)
	} else if !ok {
		return team.Membership{}, fmt.Errorf("%w: team %s", ErrNotFound, flag)
	}

	membership, err := s.teamRepo.Membership(ctx, flag)
	if err != nil {
		return team.Membership{}, fmt.Errorf("get membership: %w", err)
	}

	return membership, nil
}

// ApplyMembership replaces a team's roster and backup sets and
// re-resolves the captain. The whole edit succeeds or nothing changes.
func (s *RosterService) ApplyMembership(ctx context.Context, flag string, update MembershipUpdate) (team.Membership, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RosterService.ApplyMembership")
	defer span.End()

	flag = strings.TrimSpace(flag)
	if flag == "" {
		return team.Membership{}, fmt.Errorf("%w: team flag is required", ErrInvalidInput)
	}

	if err := s.checkWindow(); err != nil {
		return team.Membership{}, err
	}

	if _, ok, err := s.teamRepo.GetByFlag(ctx, flag); err != nil {
		return team.Membership{}, fmt.Errorf("get team: %w", err)
	} else if !ok {
		return team.Membership{}, fmt.Errorf("%w: team %s", ErrNotFound, flag)
	}

	rosterIDs, backupIDs, captainID, err := decodeMembershipUpdate(update)
	if err != nil {
		return team.Membership{}, err
	}

	if len(rosterIDs) > s.policy.RosterSizeMax || len(backupIDs) > s.policy.BackupSizeMax {
		return team.Membership{}, fmt.Errorf(
			"%w: requested %d roster and %d backup players, allowed %d-%d roster and at most %d backup players",
			ErrRosterSizeExceeded,
			len(rosterIDs), len(backupIDs),
			s.policy.RosterSizeMin, s.policy.RosterSizeMax, s.policy.BackupSizeMax,
		)
	}

	membership, err := s.teamRepo.UpdateMembership(ctx, flag, rosterIDs, backupIDs, captainID)
	if err != nil {
		if errors.Is(err, team.ErrConflictingMembership) {
			return team.Membership{}, err
		}
		return team.Membership{}, fmt.Errorf("%w: %v", ErrUnexpected, err)
	}

	s.logger.InfoContext(ctx, "team membership updated",
		"flag", flag,
		"roster_size", len(rosterIDs),
		"backup_size", len(backupIDs),
		"captain_requested", captainID != nil,
	)

	return membership, nil
}

func (s *RosterService) checkWindow() error {
	now := s.now().UTC()

	if !s.policy.RegistrationStart.IsZero() && now.Before(s.policy.RegistrationStart) {
		wait := s.policy.RegistrationStart.Sub(now).Round(time.Second)
		return fmt.Errorf("%w: Registration opens in %s", ErrNotYetOpen, wait)
	}
	if !s.policy.SelectionEnd.IsZero() && !now.Before(s.policy.SelectionEnd) {
		past := now.Sub(s.policy.SelectionEnd).Round(time.Second)
		return fmt.Errorf("%w: Roster selection ended %s ago", ErrSelectionClosed, past)
	}

	return nil
}

func decodeMembershipUpdate(update MembershipUpdate) (rosterIDs, backupIDs []int64, captainID *int64, err error) {
	var missing []string
	if update.Players == nil {
		missing = append(missing, "players")
	}
	if update.Backups == nil {
		missing = append(missing, "backups")
	}
	if len(missing) > 0 {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrMissingField, strings.Join(missing, ", "))
	}

	rosterIDs, err = decodeIDList(update.Players)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: players must be a list of player ids", ErrInvalidFieldType)
	}
	backupIDs, err = decodeIDList(update.Backups)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: backups must be a list of player ids", ErrInvalidFieldType)
	}

	captainID, err = decodeCaptain(update.Captain)
	if err != nil {
		return nil, nil, nil, err
	}

	return rosterIDs, backupIDs, captainID, nil
}

func decodeIDList(raw json.RawMessage) ([]int64, error) {
	if isJSONNull(raw) {
		return nil, fmt.Errorf("null is not a list")
	}

	var ids []int64
	if err := sonic.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}

	return ids, nil
}

// decodeCaptain treats both an absent key and an explicit null as
// "clear the captain".
func decodeCaptain(raw json.RawMessage) (*int64, error) {
	if raw == nil || isJSONNull(raw) {
		return nil, nil
	}

	var id int64
	if err := sonic.Unmarshal(raw, &id); err != nil {
		return nil, fmt.Errorf("%w: captain must be a player id or null", ErrInvalidCaptainType)
	}

	return &id, nil
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
