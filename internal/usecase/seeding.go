package usecase

import (
	"math"
	"strings"
	"time"

	"github.com/kfcrebrand/registration/internal/domain/player"
)

// DefaultBadgeCutoff is the awarded-at floor for seeding eligibility.
// Badges awarded at or before this instant do not count toward BWS.
var DefaultBadgeCutoff = time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultBadgeDenylist marks contribution and meta awards that are not
// tournament placements. Matching is lowercase substring against the
// badge description.
var DefaultBadgeDenylist = []string{
	"contrib",
	"nomination",
	"assessment",
	"moderation",
	"spotlight",
	"mapper",
	"mapping",
	"aspire",
	"monthly",
	"exemplary",
	"outstanding",
	"longstanding",
	"idol",
	"pending",
	"gmt",
	"trivium",
	"pickem",
	"fanart",
	"fan art",
	"skinning",
	"labour of love",
}

// FilterBadges keeps badges that look like tournament placements: the
// description must avoid every denylist substring and, when cutoff is
// non-zero, the badge must have been awarded strictly after it. A nil
// denylist disables the description check, a zero cutoff disables the
// date check.
func FilterBadges(badges []player.Badge, denylist []string, cutoff time.Time) []player.Badge {
	kept := make([]player.Badge, 0, len(badges))

	for _, badge := range badges {
		description := strings.ToLower(badge.Description)
		if matchesAny(description, denylist) {
			continue
		}
		if !cutoff.IsZero() && !badge.AwardedAt.After(cutoff) {
			continue
		}
		kept = append(kept, badge)
	}

	return kept
}

func matchesAny(description string, denylist []string) bool {
	for _, marker := range denylist {
		if marker == "" {
			continue
		}
		if strings.Contains(description, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

const bwsBase = 0.9937

// BWS computes the badge-weighted seeding rank: rank^(0.9937^(badges²)),
// rounded half away from zero. More eligible badges pull the effective
// rank toward 1; zero badges leave it unchanged.
func BWS(badgeCount int, globalRank int64) int64 {
	if globalRank <= 0 {
		return globalRank
	}
	if badgeCount < 0 {
		badgeCount = 0
	}

	exponent := math.Pow(bwsBase, float64(badgeCount*badgeCount))
	return int64(math.Round(math.Pow(float64(globalRank), exponent)))
}
