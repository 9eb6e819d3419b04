package registration

import "context"

const (
	EventTypeNew           = "registration.new"
	EventTypeDiscordSwitch = "registration.discord_switch"
	EventTypeDelete        = "registration.delete"
)

// Event is a domain event emitted by the identity linking flows and
// consumed by the Discord bridge.
type Event interface {
	EventType() string
}

// NewRegistration is emitted once per freshly created player.
type NewRegistration struct {
	DiscordUserID    string `json:"discord_user_id"`
	OsuUserID        int64  `json:"osu_user_id"`
	OsuUsername      string `json:"osu_username"`
	OsuGlobalRank    *int64 `json:"osu_global_rank"`
	OsuGlobalRankBWS *int64 `json:"osu_global_rank_bws"`
	Flag             string `json:"flag"`
	IsOrganizer      bool   `json:"is_organizer"`
}

func (NewRegistration) EventType() string { return EventTypeNew }

// DiscordSwitch is emitted when an existing player re-pairs with a new
// discord identity.
type DiscordSwitch struct {
	OldDiscordUserID string `json:"old_discord_user_id"`
	NewDiscordUserID string `json:"new_discord_user_id"`
}

func (DiscordSwitch) EventType() string { return EventTypeDiscordSwitch }

// AccountDeleted is emitted by the account deletion flow.
type AccountDeleted struct {
	DiscordUserID string `json:"discord_user_id"`
	OsuUserID     int64  `json:"osu_user_id"`
}

func (AccountDeleted) EventType() string { return EventTypeDelete }

// EventSink receives domain events. Production wiring publishes to the
// Discord bridge webhook; tests collect in memory.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}
