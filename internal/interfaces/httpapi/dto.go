package httpapi

import (
	"fmt"
	"time"

	"github.com/kfcrebrand/registration/internal/domain/player"
	"github.com/kfcrebrand/registration/internal/domain/team"
	"github.com/kfcrebrand/registration/internal/usecase"
)

type playerDTO struct {
	UserID          int64  `json:"user_id"`
	DiscordUserID   string `json:"discord_user_id"`
	DiscordUsername string `json:"discord_username"`
	OsuUserID       int64  `json:"osu_user_id"`
	OsuUsername     string `json:"osu_username"`
	OsuFlag         string `json:"osu_flag"`
	OsuRankStd      *int64 `json:"osu_rank_std"`
	OsuRankStdBWS   *int64 `json:"osu_rank_std_bws"`
	OsuStatsUpdated string `json:"osu_stats_updated"`
	IsOrganizer     bool   `json:"is_organizer"`

	// Roster state is only serialized for privileged viewers.
	IsCaptain      *bool `json:"is_captain,omitempty"`
	InRoster       *bool `json:"in_roster,omitempty"`
	InBackupRoster *bool `json:"in_backup_roster,omitempty"`
}

func playerToDTO(p player.Player, privileged bool) playerDTO {
	dto := playerDTO{
		UserID:          p.ID,
		DiscordUserID:   p.DiscordUserID,
		DiscordUsername: p.DiscordUsername,
		OsuUserID:       p.OsuUserID,
		OsuUsername:     p.OsuUsername,
		OsuFlag:         p.OsuFlag,
		OsuRankStd:      p.OsuRank,
		OsuRankStdBWS:   p.OsuRankBWS,
		IsOrganizer:     p.IsOrganizer,
	}
	if !p.OsuStatsUpdated.IsZero() {
		dto.OsuStatsUpdated = p.OsuStatsUpdated.UTC().Format(time.RFC3339)
	}
	if privileged {
		isCaptain := p.IsCaptain
		inRoster := p.InRoster
		inBackup := p.InBackupRoster
		dto.IsCaptain = &isCaptain
		dto.InRoster = &inRoster
		dto.InBackupRoster = &inBackup
	}
	return dto
}

func playersToDTO(players []player.Player, privileged bool) []playerDTO {
	out := make([]playerDTO, 0, len(players))
	for _, p := range players {
		out = append(out, playerToDTO(p, privileged))
	}
	return out
}

type badgeDTO struct {
	Description string `json:"description"`
	AwardedAt   string `json:"awarded_at"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
	ImageURL2x  string `json:"image@2x_url"`
}

func badgesToDTO(badges []player.Badge) []badgeDTO {
	out := make([]badgeDTO, 0, len(badges))
	for _, b := range badges {
		out = append(out, badgeDTO{
			Description: b.Description,
			AwardedAt:   b.AwardedAt.UTC().Format(time.RFC3339),
			URL:         b.URL,
			ImageURL:    b.ImageURL,
			ImageURL2x:  b.ImageURL2x,
		})
	}
	return out
}

type registrantDetailDTO struct {
	playerDTO
	Badges []badgeDTO `json:"badges"`
}

func registrantDetailToDTO(detail usecase.RegistrantDetail, privileged bool) registrantDetailDTO {
	return registrantDetailDTO{
		playerDTO: playerToDTO(detail.Player, privileged),
		Badges:    badgesToDTO(detail.Badges),
	}
}

func badgesFromRequest(badges []badgeRequestDTO) ([]player.Badge, error) {
	out := make([]player.Badge, 0, len(badges))
	for _, b := range badges {
		awardedAt, err := time.Parse(time.RFC3339, b.AwardedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: badge awarded_at must be an RFC 3339 timestamp", usecase.ErrInvalidInput)
		}
		out = append(out, player.Badge{
			Description: b.Description,
			AwardedAt:   awardedAt,
			URL:         b.URL,
			ImageURL:    b.ImageURL,
			ImageURL2x:  b.ImageURL2x,
		})
	}
	return out, nil
}

type teamDTO struct {
	Flag string `json:"flag"`
}

type membershipDTO struct {
	Flag       string      `json:"flag"`
	Roster     []playerDTO `json:"roster"`
	Backups    []playerDTO `json:"backups"`
	Candidates []playerDTO `json:"candidates"`
	CaptainID  *int64      `json:"captain_id"`
}

func membershipToDTO(m team.Membership, privileged bool) membershipDTO {
	dto := membershipDTO{
		Flag:       m.Flag,
		Roster:     playersToDTO(m.Roster, privileged),
		Backups:    playersToDTO(m.Backups, privileged),
		Candidates: playersToDTO(m.Candidates, privileged),
	}
	if captain, ok := m.Captain(); ok {
		id := captain.ID
		dto.CaptainID = &id
	}
	return dto
}
