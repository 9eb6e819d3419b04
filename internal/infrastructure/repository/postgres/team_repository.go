package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kfcrebrand/registration/internal/domain/team"
	qb "github.com/kfcrebrand/registration/internal/platform/querybuilder"
)

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	query, args, err := qb.Select("*").From("teams").
		Where(qb.IsNull("deleted_at")).
		OrderBy("flag").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, teamFromRow(row))
	}
	return out, nil
}

func (r *TeamRepository) GetByFlag(ctx context.Context, flag string) (team.Team, bool, error) {
	query, args, err := qb.Select("*").From("teams").
		Where(
			qb.Eq("flag", flag),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build get team by flag query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("get team by flag: %w", err)
	}

	return teamFromRow(row), true, nil
}

func (r *TeamRepository) GetOrCreate(ctx context.Context, flag string) (team.Team, error) {
	if err := (team.Team{Flag: flag}).Validate(); err != nil {
		return team.Team{}, fmt.Errorf("validate team: %w", err)
	}

	const upsertTeamQuery = `
INSERT INTO teams (flag)
VALUES (:flag)
ON CONFLICT (flag)
DO UPDATE SET
    updated_at = NOW(),
    deleted_at = NULL
RETURNING flag`

	upsertSQL, upsertArgs, err := sqlx.Named(upsertTeamQuery, map[string]any{"flag": flag})
	if err != nil {
		return team.Team{}, fmt.Errorf("bind upsert team query: %w", err)
	}
	upsertSQL = r.db.Rebind(upsertSQL)

	rows, err := r.db.QueryxContext(ctx, upsertSQL, upsertArgs...)
	if err != nil {
		return team.Team{}, fmt.Errorf("upsert team: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return team.Team{}, fmt.Errorf("upsert team: no row returned")
	}
	var returnedFlag string
	if err := rows.Scan(&returnedFlag); err != nil {
		return team.Team{}, fmt.Errorf("scan upserted team flag: %w", err)
	}

	return team.Team{Flag: returnedFlag}, nil
}

func (r *TeamRepository) Membership(ctx context.Context, flag string) (team.Membership, error) {
	return membershipByFlag(ctx, r.db, flag)
}

func membershipByFlag(ctx context.Context, q sqlx.QueryerContext, flag string) (team.Membership, error) {
	query, args, err := playerBaseSelectBuilder().
		Where(
			qb.Eq("osu_flag", flag),
			qb.IsNull("deleted_at"),
		).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return team.Membership{}, fmt.Errorf("build team membership query: %w", err)
	}

	var rows []playerTableModel
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return team.Membership{}, fmt.Errorf("select team members: %w", err)
	}

	return groupMembership(flag, rows), nil
}

func groupMembership(flag string, rows []playerTableModel) team.Membership {
	membership := team.Membership{Flag: flag}
	for _, row := range rows {
		member := playerFromRow(row)
		switch {
		case member.InRoster:
			membership.Roster = append(membership.Roster, member)
		case member.InBackupRoster:
			membership.Backups = append(membership.Backups, member)
		default:
			membership.Candidates = append(membership.Candidates, member)
		}
	}

	return membership
}

// UpdateMembership rewrites the whole roster state of one team in a single
// transaction: every member is cleared first, then the requested roster and
// backup sets are applied. The not_both_roster_and_backup check constraint
// rejects overlapping sets, which surfaces as team.ErrConflictingMembership
// with the previous state intact.
func (r *TeamRepository) UpdateMembership(ctx context.Context, flag string, rosterIDs, backupIDs []int64, captainID *int64) (team.Membership, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return team.Membership{}, fmt.Errorf("begin tx for membership update: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const clearQuery = `
UPDATE players
SET in_roster = FALSE,
    in_backup_roster = FALSE,
    is_captain = FALSE,
    updated_at = NOW()
WHERE osu_flag = $1
  AND deleted_at IS NULL`
	if _, err := tx.ExecContext(ctx, clearQuery, flag); err != nil {
		return team.Membership{}, fmt.Errorf("clear team membership: %w", err)
	}

	const setRosterQuery = `
UPDATE players
SET in_roster = TRUE,
    updated_at = NOW()
WHERE osu_flag = $1
  AND id = ANY($2)
  AND deleted_at IS NULL`
	if _, err := tx.ExecContext(ctx, setRosterQuery, flag, pq.Array(rosterIDs)); err != nil {
		return team.Membership{}, fmt.Errorf("set roster members: %w", err)
	}

	const setBackupsQuery = `
UPDATE players
SET in_backup_roster = TRUE,
    updated_at = NOW()
WHERE osu_flag = $1
  AND id = ANY($2)
  AND deleted_at IS NULL`
	if _, err := tx.ExecContext(ctx, setBackupsQuery, flag, pq.Array(backupIDs)); err != nil {
		if isConstraintViolation(err, constraintRosterExclusive) {
			return team.Membership{}, team.ErrConflictingMembership
		}
		return team.Membership{}, fmt.Errorf("set backup members: %w", err)
	}

	if captainID != nil {
		// The in_roster guard keeps a captain id outside the requested
		// roster from flagging anyone.
		const setCaptainQuery = `
UPDATE players
SET is_captain = TRUE,
    updated_at = NOW()
WHERE osu_flag = $1
  AND id = $2
  AND in_roster
  AND deleted_at IS NULL`
		if _, err := tx.ExecContext(ctx, setCaptainQuery, flag, *captainID); err != nil {
			return team.Membership{}, fmt.Errorf("set team captain: %w", err)
		}
	}

	// Read the result inside the transaction so the returned view
	// cannot pick up a concurrent later edit.
	membership, err := membershipByFlag(ctx, tx, flag)
	if err != nil {
		return team.Membership{}, fmt.Errorf("read membership after update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return team.Membership{}, fmt.Errorf("commit membership update tx: %w", err)
	}

	return membership, nil
}
