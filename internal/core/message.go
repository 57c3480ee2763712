package core

import "time"

// Role is the kind of actor behind a connection.
type Role string

const (
	RoleStudent Role = "student"
	RoleFaculty Role = "faculty"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleFaculty
}

// Identity is the actor claimed at handshake time. It is trusted only after
// the membership check for the target group passes.
type Identity struct {
	UserID int64
	Role   Role
	Name   string
}

// Attachment describes a shared file. A nil *Attachment means the message has none.
type Attachment struct {
	Name string
	URL  string
	Size int64
}

// Message is the domain model for a persisted chat message, enriched with the
// sender's display name.
type Message struct {
	ID         int64
	GroupID    int64
	SenderID   int64
	SenderRole Role
	SenderName string
	Content    string
	Attachment *Attachment
	SentAt     time.Time
}

// NewMessage is a validated send waiting to be persisted.
type NewMessage struct {
	GroupID    int64
	SenderID   int64
	SenderRole Role
	Content    string
	Attachment *Attachment
}
