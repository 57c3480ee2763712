package core

import "context"

// ChatService abstracts the durable-store side of the hub. The hub never calls it
// from its own goroutine; every call runs on a worker and resumes on the hub.
type ChatService interface {
	// IsMember confirms that the actor belongs to the group: a membership row for
	// students, mentorship of the group for faculty.
	IsMember(ctx context.Context, userID int64, role Role, groupID int64) (bool, error)

	// Persist stores a message with a server-side timestamp and returns it
	// enriched with the sender's display name.
	Persist(ctx context.Context, msg NewMessage) (Message, error)

	// SetOnline records the actor's online status for a group.
	SetOnline(ctx context.Context, groupID, userID int64, role Role, online bool) error
}
