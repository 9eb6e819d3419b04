package postgres

import (
	"database/sql"
	"time"

	"github.com/kfcrebrand/registration/internal/domain/player"
)

type playerTableModel struct {
	ID              int64         `db:"id"`
	DiscordUserID   string        `db:"discord_user_id"`
	DiscordUsername string        `db:"discord_username"`
	OsuUserID       int64         `db:"osu_user_id"`
	OsuUsername     string        `db:"osu_username"`
	OsuFlag         string        `db:"osu_flag"`
	OsuRank         sql.NullInt64 `db:"osu_rank_std"`
	OsuRankBWS      sql.NullInt64 `db:"osu_rank_std_bws"`
	OsuStatsUpdated sql.NullTime  `db:"osu_stats_updated"`
	IsOrganizer     bool          `db:"is_organizer"`
	IsCaptain       bool          `db:"is_captain"`
	InRoster        bool          `db:"in_roster"`
	InBackupRoster  bool          `db:"in_backup_roster"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
	DeletedAt       *time.Time    `db:"deleted_at"`
}

type playerInsertModel struct {
	DiscordUserID   string        `db:"discord_user_id"`
	DiscordUsername string        `db:"discord_username"`
	OsuUserID       int64         `db:"osu_user_id"`
	OsuUsername     string        `db:"osu_username"`
	OsuFlag         string        `db:"osu_flag"`
	OsuRank         sql.NullInt64 `db:"osu_rank_std"`
	OsuRankBWS      sql.NullInt64 `db:"osu_rank_std_bws"`
	OsuStatsUpdated sql.NullTime  `db:"osu_stats_updated"`
	IsOrganizer     bool          `db:"is_organizer"`
}

var playerSelectColumns = []string{
	"id",
	"discord_user_id",
	"discord_username",
	"osu_user_id",
	"osu_username",
	"osu_flag",
	"osu_rank_std",
	"osu_rank_std_bws",
	"osu_stats_updated",
	"is_organizer",
	"is_captain",
	"in_roster",
	"in_backup_roster",
	"created_at",
	"updated_at",
	"deleted_at",
}

func playerFromRow(row playerTableModel) player.Player {
	var statsUpdated time.Time
	if row.OsuStatsUpdated.Valid {
		statsUpdated = row.OsuStatsUpdated.Time
	}

	return player.Player{
		ID:              row.ID,
		DiscordUserID:   row.DiscordUserID,
		DiscordUsername: row.DiscordUsername,
		OsuUserID:       row.OsuUserID,
		OsuUsername:     row.OsuUsername,
		OsuFlag:         row.OsuFlag,
		OsuRank:         nullInt64ToPtr(row.OsuRank),
		OsuRankBWS:      nullInt64ToPtr(row.OsuRankBWS),
		OsuStatsUpdated: statsUpdated,
		IsOrganizer:     row.IsOrganizer,
		IsCaptain:       row.IsCaptain,
		InRoster:        row.InRoster,
		InBackupRoster:  row.InBackupRoster,
		TeamID:          row.OsuFlag,
	}
}

type badgeTableModel struct {
	ID          int64     `db:"id"`
	PlayerID    int64     `db:"player_id"`
	Description string    `db:"description"`
	AwardedAt   time.Time `db:"awarded_at"`
	URL         string    `db:"url"`
	ImageURL    string    `db:"image_url"`
	ImageURL2x  string    `db:"image_2x_url"`
	CreatedAt   time.Time `db:"created_at"`
}

type badgeInsertModel struct {
	PlayerID    int64     `db:"player_id"`
	Description string    `db:"description"`
	AwardedAt   time.Time `db:"awarded_at"`
	URL         string    `db:"url"`
	ImageURL    string    `db:"image_url"`
	ImageURL2x  string    `db:"image_2x_url"`
}

func badgeFromRow(row badgeTableModel) player.Badge {
	return player.Badge{
		Description: row.Description,
		AwardedAt:   row.AwardedAt,
		URL:         row.URL,
		ImageURL:    row.ImageURL,
		ImageURL2x:  row.ImageURL2x,
	}
}
