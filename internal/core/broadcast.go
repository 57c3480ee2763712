package core

import "github.com/rs/zerolog"

// Broadcaster fans events out to a group channel.
type Broadcaster struct {
	registry *Registry
	log      *zerolog.Logger
}

// NewBroadcaster creates a broadcaster over the given registry.
func NewBroadcaster(registry *Registry, logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: logger}
}

// Broadcast delivers event to every connection of groupID except excludeID
// (empty means nobody is excluded). Failures are isolated per recipient.
func (b *Broadcaster) Broadcast(groupID int64, event *Event, excludeID string) int {
	room := b.registry.Room(groupID)
	if room == nil {
		return 0
	}
	delivered, dropped := room.Broadcast(event, excludeID)
	if dropped > 0 {
		b.log.Debug().
			Int64("group_id", groupID).
			Str("event", event.Kind.String()).
			Int("dropped", dropped).
			Msg("slow consumers skipped")
	}
	return delivered
}
