package memory

import (
	"context"
	"time"

	"github.com/kfcrebrand/registration/internal/domain/player"
	"github.com/kfcrebrand/registration/internal/domain/team"
)

// DefaultTeamFlag is the catch-all team created at startup for players
// whose country has no dedicated team yet.
const DefaultTeamFlag = "WYSI"

func int64Ptr(v int64) *int64 { return &v }

// SeedStore builds a store with the default team and a deterministic
// set of registered players, enough to exercise roster edits in tests
// and local development.
func SeedStore() *Store {
	store := NewStore()
	ctx := context.Background()

	if _, err := store.Teams().GetOrCreate(ctx, DefaultTeamFlag); err != nil {
		panic(err)
	}

	statsAt := time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)
	players := []player.Player{
		{DiscordUserID: "100000000000000001", DiscordUsername: "hitsounds", OsuUserID: 4001, OsuUsername: "hitsounds", OsuFlag: "CA", OsuRank: int64Ptr(1874), OsuRankBWS: int64Ptr(1540), TeamID: "CA"},
		{DiscordUserID: "100000000000000002", DiscordUsername: "slider#9182", OsuUserID: 4002, OsuUsername: "sliderbreak", OsuFlag: "CA", OsuRank: int64Ptr(5120), OsuRankBWS: int64Ptr(5120), TeamID: "CA"},
		{DiscordUserID: "100000000000000003", DiscordUsername: "spinner", OsuUserID: 4003, OsuUsername: "spinnerman", OsuFlag: "CA", OsuRank: int64Ptr(9923), OsuRankBWS: int64Ptr(8100), TeamID: "CA"},
		{DiscordUserID: "100000000000000004", DiscordUsername: "kudosu", OsuUserID: 4004, OsuUsername: "kudosu", OsuFlag: "CA", OsuRank: int64Ptr(15000), OsuRankBWS: int64Ptr(15000), TeamID: "CA"},
		{DiscordUserID: "100000000000000005", DiscordUsername: "retry#0420", OsuUserID: 4005, OsuUsername: "retrybtn", OsuFlag: "CA", OsuRank: int64Ptr(20877), OsuRankBWS: int64Ptr(19204), TeamID: "CA"},
		{DiscordUserID: "100000000000000006", DiscordUsername: "quickmiss", OsuUserID: 4006, OsuUsername: "quickmiss", OsuFlag: "CA", OsuRank: int64Ptr(31442), OsuRankBWS: int64Ptr(31442), TeamID: "CA"},
		{DiscordUserID: "100000000000000007", DiscordUsername: "lazer", OsuUserID: 4007, OsuUsername: "lazermain", OsuFlag: "CA", OsuRank: int64Ptr(40210), OsuRankBWS: int64Ptr(38000), TeamID: "CA"},
		{DiscordUserID: "100000000000000008", DiscordUsername: "tablet", OsuUserID: 4008, OsuUsername: "tabletzone", OsuFlag: "CA", OsuRank: int64Ptr(51003), OsuRankBWS: int64Ptr(51003), TeamID: "CA"},
		{DiscordUserID: "100000000000000009", DiscordUsername: "mouseonly", OsuUserID: 4009, OsuUsername: "mouseonly", OsuFlag: "CA", OsuRank: int64Ptr(64120), OsuRankBWS: int64Ptr(60118), TeamID: "CA"},
		{DiscordUserID: "100000000000000010", DiscordUsername: "nomod", OsuUserID: 4010, OsuUsername: "nomodder", OsuFlag: "CA", OsuRank: int64Ptr(70555), OsuRankBWS: int64Ptr(70555), TeamID: "CA"},
		{DiscordUserID: "100000000000000011", DiscordUsername: "hidden", OsuUserID: 4011, OsuUsername: "hiddenfan", OsuFlag: "FI", OsuRank: int64Ptr(812), OsuRankBWS: int64Ptr(633), TeamID: "FI"},
		{DiscordUserID: "100000000000000012", DiscordUsername: "hardrock", OsuUserID: 4012, OsuUsername: "hardrocker", OsuFlag: "FI", OsuRank: int64Ptr(2200), OsuRankBWS: int64Ptr(2200), TeamID: "FI"},
	}

	repo := store.Players()
	for i := range players {
		players[i].OsuStatsUpdated = statsAt
		if _, err := repo.Register(ctx, players[i], nil); err != nil {
			panic(err)
		}
	}

	return store
}

var _ player.Repository = (*PlayerRepository)(nil)
var _ team.Repository = (*TeamRepository)(nil)
