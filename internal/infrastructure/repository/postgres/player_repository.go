package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kfcrebrand/registration/internal/domain/player"
	qb "github.com/kfcrebrand/registration/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) GetByID(ctx context.Context, id int64) (player.Player, bool, error) {
	query, args, err := playerBaseSelectBuilder().
		Where(
			qb.Eq("id", id),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build get player by id query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("get player by id: %w", err)
	}

	return playerFromRow(row), true, nil
}

func (r *PlayerRepository) GetByPairing(ctx context.Context, discordUserID string, osuUserID int64) (player.Player, bool, error) {
	query, args, err := playerBaseSelectBuilder().
		Where(
			qb.Eq("discord_user_id", discordUserID),
			qb.Eq("osu_user_id", osuUserID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build get player by pairing query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isBindParameterMismatch(err) || isUnnamedPreparedStatementMissing(err) {
			return r.getByPairingSingleParam(ctx, discordUserID, osuUserID)
		}
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("get player by pairing: %w", err)
	}

	return playerFromRow(row), true, nil
}

func (r *PlayerRepository) getByPairingSingleParam(ctx context.Context, discordUserID string, osuUserID int64) (player.Player, bool, error) {
	query, _, err := playerBaseSelectBuilder().
		Where(
			qb.Expr("discord_user_id = ($1::text[])[1]"),
			qb.Expr("osu_user_id = (($1::text[])[2])::bigint"),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build get player by pairing single param fallback query: %w", err)
	}

	pairing := pq.Array([]string{discordUserID, strconv.FormatInt(osuUserID, 10)})
	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, pairing); err != nil {
		if isUnnamedPreparedStatementMissing(err) {
			return r.getByPairingLiteral(ctx, discordUserID, osuUserID)
		}
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("get player by pairing fallback: %w", err)
	}

	return playerFromRow(row), true, nil
}

func (r *PlayerRepository) getByPairingLiteral(ctx context.Context, discordUserID string, osuUserID int64) (player.Player, bool, error) {
	query, args, err := playerBaseSelectBuilder().
		Where(
			qb.EqLiteral("discord_user_id", discordUserID),
			qb.Expr("osu_user_id = "+strconv.FormatInt(osuUserID, 10)),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build get player by pairing literal fallback query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("get player by pairing literal fallback: %w", err)
	}

	return playerFromRow(row), true, nil
}

func (r *PlayerRepository) FindByOsuID(ctx context.Context, osuUserID int64) (player.Player, bool, error) {
	return r.findByColumn(ctx, qb.Eq("osu_user_id", osuUserID), "osu id")
}

func (r *PlayerRepository) FindByDiscordID(ctx context.Context, discordUserID string) (player.Player, bool, error) {
	return r.findByColumn(ctx, qb.Eq("discord_user_id", discordUserID), "discord id")
}

func (r *PlayerRepository) findByColumn(ctx context.Context, cond qb.Condition, label string) (player.Player, bool, error) {
	query, args, err := playerBaseSelectBuilder().
		Where(cond, qb.IsNull("deleted_at")).
		OrderBy("id").
		Limit(1).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build find player by %s query: %w", label, err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("find player by %s: %w", label, err)
	}

	return playerFromRow(row), true, nil
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	query, args, err := playerBaseSelectBuilder().
		Where(qb.IsNull("deleted_at")).
		OrderBy("id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list players query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, playerFromRow(row))
	}
	return out, nil
}

func (r *PlayerRepository) Register(ctx context.Context, p player.Player, badges []player.Badge) (player.Player, error) {
	if err := p.Validate(); err != nil {
		return player.Player{}, fmt.Errorf("validate player: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return player.Player{}, fmt.Errorf("begin tx for player registration: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const ensureTeamQuery = `
INSERT INTO teams (flag)
VALUES ($1)
ON CONFLICT (flag) DO NOTHING`
	if _, err := tx.ExecContext(ctx, ensureTeamQuery, p.OsuFlag); err != nil {
		return player.Player{}, fmt.Errorf("ensure team flag=%s: %w", p.OsuFlag, err)
	}

	insert := playerInsertModel{
		DiscordUserID:   p.DiscordUserID,
		DiscordUsername: p.DiscordUsername,
		OsuUserID:       p.OsuUserID,
		OsuUsername:     p.OsuUsername,
		OsuFlag:         p.OsuFlag,
		OsuRank:         ptrToNullInt64(p.OsuRank),
		OsuRankBWS:      ptrToNullInt64(p.OsuRankBWS),
		OsuStatsUpdated: statsUpdatedToNull(p.OsuStatsUpdated),
		IsOrganizer:     p.IsOrganizer,
	}
	query, args, err := qb.InsertModel("players", insert, "RETURNING id")
	if err != nil {
		return player.Player{}, fmt.Errorf("build insert player query: %w", err)
	}

	var playerID int64
	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		if isConstraintViolation(err, constraintPairingUnique) {
			return player.Player{}, fmt.Errorf("insert player: %w: %v", player.ErrPairingExists, err)
		}
		return player.Player{}, fmt.Errorf("insert player: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&playerID); err != nil {
			return player.Player{}, fmt.Errorf("scan inserted player id: %w", err)
		}
	} else {
		return player.Player{}, fmt.Errorf("insert player: no row returned")
	}
	rows.Close()

	if err := insertBadges(ctx, tx, playerID, badges); err != nil {
		return player.Player{}, err
	}

	if err := tx.Commit(); err != nil {
		return player.Player{}, fmt.Errorf("commit player registration tx: %w", err)
	}

	p.ID = playerID
	p.TeamID = p.OsuFlag
	return p, nil
}

func (r *PlayerRepository) SwitchDiscordIdentity(ctx context.Context, playerID int64, discordUserID, discordUsername string) (player.Player, error) {
	return r.updateReturning(ctx, "switch discord identity",
		qb.Update("players").
			Set("discord_user_id", discordUserID).
			Set("discord_username", discordUsername).
			SetExpr("updated_at", "NOW()").
			Where(
				qb.Eq("id", playerID),
				qb.IsNull("deleted_at"),
			),
		playerID,
	)
}

func (r *PlayerRepository) SetOrganizer(ctx context.Context, playerID int64, organizer bool) (player.Player, error) {
	return r.updateReturning(ctx, "set organizer",
		qb.Update("players").
			Set("is_organizer", organizer).
			SetExpr("updated_at", "NOW()").
			Where(
				qb.Eq("id", playerID),
				qb.IsNull("deleted_at"),
			),
		playerID,
	)
}

func (r *PlayerRepository) updateReturning(ctx context.Context, label string, builder *qb.UpdateBuilder, playerID int64) (player.Player, error) {
	query, args, err := builder.
		Suffix("RETURNING " + strings.Join(playerSelectColumns, ", ")).
		ToSQL()
	if err != nil {
		return player.Player{}, fmt.Errorf("build %s query: %w", label, err)
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return player.Player{}, fmt.Errorf("%s: %w", label, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return player.Player{}, fmt.Errorf("%s: player id=%d not found", label, playerID)
	}

	var row playerTableModel
	if err := rows.StructScan(&row); err != nil {
		return player.Player{}, fmt.Errorf("scan %s result: %w", label, err)
	}

	return playerFromRow(row), nil
}

func (r *PlayerRepository) ReplaceStats(ctx context.Context, playerID int64, rank, rankBWS *int64, updatedAt time.Time, badges []player.Badge) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for stats replace: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := qb.Update("players").
		Set("osu_rank_std", ptrToNullInt64(rank)).
		Set("osu_rank_std_bws", ptrToNullInt64(rankBWS)).
		Set("osu_stats_updated", updatedAt).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("id", playerID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update player stats query: %w", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update player stats: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("count updated player stats rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update player stats: player id=%d not found", playerID)
	}

	const clearBadgesQuery = `
DELETE FROM player_badges
WHERE player_id = $1`
	if _, err := tx.ExecContext(ctx, clearBadgesQuery, playerID); err != nil {
		return fmt.Errorf("clear player badges: %w", err)
	}

	if err := insertBadges(ctx, tx, playerID, badges); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stats replace tx: %w", err)
	}

	return nil
}

func (r *PlayerRepository) ListBadges(ctx context.Context, playerID int64) ([]player.Badge, error) {
	query, args, err := qb.Select("*").From("player_badges").
		Where(qb.Eq("player_id", playerID)).
		OrderBy("awarded_at", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list player badges query: %w", err)
	}

	var rows []badgeTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list player badges: %w", err)
	}

	out := make([]player.Badge, 0, len(rows))
	for _, row := range rows {
		out = append(out, badgeFromRow(row))
	}
	return out, nil
}

func (r *PlayerRepository) Delete(ctx context.Context, playerID int64) error {
	query, args, err := qb.Update("players").
		SetExpr("deleted_at", "NOW()").
		Set("in_roster", false).
		Set("in_backup_roster", false).
		Set("is_captain", false).
		Where(
			qb.Eq("id", playerID),
			qb.IsNull("deleted_at"),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build delete player query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	return nil
}

func (r *PlayerRepository) IsDisqualified(ctx context.Context, osuUserID int64) (bool, error) {
	query, args, err := qb.Select("osu_user_id").From("disqualified_users").
		Where(qb.Eq("osu_user_id", osuUserID)).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build disqualified lookup query: %w", err)
	}

	var found int64
	if err := r.db.GetContext(ctx, &found, query, args...); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("lookup disqualified user: %w", err)
	}
	return true, nil
}

func insertBadges(ctx context.Context, tx *sqlx.Tx, playerID int64, badges []player.Badge) error {
	for _, badge := range badges {
		query, args, err := qb.InsertModel("player_badges", badgeInsertModel{
			PlayerID:    playerID,
			Description: badge.Description,
			AwardedAt:   badge.AwardedAt,
			URL:         badge.URL,
			ImageURL:    badge.ImageURL,
			ImageURL2x:  badge.ImageURL2x,
		}, "")
		if err != nil {
			return fmt.Errorf("build insert badge query for player=%d: %w", playerID, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert badge for player=%d: %w", playerID, err)
		}
	}
	return nil
}

func statsUpdatedToNull(v time.Time) sql.NullTime {
	if v.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v, Valid: true}
}

func playerBaseSelectBuilder() *qb.SelectBuilder {
	return qb.Select(playerSelectColumns...).From("players")
}
