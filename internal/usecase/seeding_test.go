package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kfcrebrand/registration/internal/domain/player"
)

func TestBWS(t *testing.T) {
	cases := []struct {
		badges   int
		rank     int64
		expected int64
	}{
		{5, 832141, 113493},
		{1, 28151, 26391},
		{1, 27817, 26080},
		{1, 10601, 10000},
		{0, 42387, 42387},
		{0, 2319784, 2319784},
		{0, 69727, 69727},
		{1, 69727, 64996},
		{2, 69727, 52783},
		{3, 69727, 37636},
		{4, 69727, 23856},
		{5, 69727, 13663},
		{6, 69727, 7208},
		{7, 69727, 3577},
		{8, 69727, 1707},
		{9, 69727, 800},
		{10, 69727, 375},
		{32, 69727, 1},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.expected, BWS(tc.badges, tc.rank),
			"bws(%d, %d)", tc.badges, tc.rank)
	}
}

func badgeOn(description, awardedAt string) player.Badge {
	ts, err := time.Parse(time.RFC3339, awardedAt)
	if err != nil {
		panic(err)
	}
	return player.Badge{Description: description, AwardedAt: ts}
}

func TestFilterBadges_Denylist(t *testing.T) {
	epoch := time.Unix(0, 0).UTC()

	cases := []struct {
		name   string
		badges []player.Badge
		kept   int
	}{
		{
			name: "mappers choice award dropped",
			badges: []player.Badge{
				badgeOn("Mapper's Choice Awards 2021: Top 3 in the user/beatmap category Hitsounding", "2023-01-19T02:08:46Z"),
			},
			kept: 0,
		},
		{
			name: "longstanding commitment dropped",
			badges: []player.Badge{
				badgeOn("Longstanding commitment to World Cup Commentary (6 years)", "2023-07-16T19:44:58Z"),
			},
			kept: 0,
		},
		{
			name: "outstanding contribution dropped",
			badges: []player.Badge{
				badgeOn("Outstanding contribution to the osu! tournament scene and the World Cups", "2023-11-19T21:25:58Z"),
			},
			kept: 0,
		},
		{
			name: "world cup placement kept",
			badges: []player.Badge{
				badgeOn("osu! World Cup 2020 3rd Place (Canada)", "2020-12-06T19:38:15Z"),
			},
			kept: 1,
		},
		{
			name: "winning team badges kept",
			badges: []player.Badge{
				badgeOn("Spring Flower Scramble: Wisteria Winning Team", "2023-04-30T11:49:15Z"),
				badgeOn("osu! TV Size Tournament 2020 Winning Team", "2020-04-21T09:55:41Z"),
				badgeOn("North American Tournament (Winner)", "2014-08-12T15:08:35Z"),
			},
			kept: 3,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kept := FilterBadges(tc.badges, DefaultBadgeDenylist, epoch)
			assert.Len(t, kept, tc.kept)
		})
	}
}

func TestFilterBadges_Cutoff(t *testing.T) {
	recent := badgeOn("Villoux Tournament #7 Winner", "2023-11-19T21:25:58Z")
	stale := badgeOn("Villoux Tournament #6 Winner", "2019-12-31T23:25:58Z")

	kept := FilterBadges([]player.Badge{recent, stale}, nil, DefaultBadgeCutoff)
	if assert.Len(t, kept, 1) {
		assert.Equal(t, recent.Description, kept[0].Description)
	}

	// Awarded exactly at the cutoff instant is still stale.
	boundary := badgeOn("Boundary Cup Winner", "2021-01-01T00:00:00Z")
	assert.Empty(t, FilterBadges([]player.Badge{boundary}, nil, DefaultBadgeCutoff))

	// A custom cutoff admits older badges.
	older := time.Date(2014, time.August, 1, 0, 0, 0, 0, time.UTC)
	assert.Len(t, FilterBadges([]player.Badge{stale}, nil, older), 1)

	// Zero cutoff keeps every date.
	assert.Len(t, FilterBadges([]player.Badge{recent, stale}, nil, time.Time{}), 2)
}
