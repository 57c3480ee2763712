package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// UserType distinguishes the two actor tables. Ids are only unique per type.
type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeFaculty UserType = "faculty"
)

// Attachment describes a shared file.
type Attachment struct {
	Name string
	URL  string
	Size int64
}

// Message represents a persisted chat message.
type Message struct {
	ID         int64
	GroupID    int64
	SenderID   int64
	SenderType UserType
	SenderName string // filled on reads only
	Content    string
	Attachment *Attachment
	SentAt     time.Time
}

// OnlineUser is a row of the online-status table joined with the actor's name.
type OnlineUser struct {
	UserID   int64
	UserType UserType
	UserName string
	LastSeen time.Time
}

// MembershipStore answers group membership questions.
type MembershipStore interface {
	// IsGroupMember reports whether a student has a membership row for the group.
	IsGroupMember(ctx context.Context, studentID, groupID int64) (bool, error)

	// IsGroupMentor reports whether a faculty member mentors the group.
	IsGroupMentor(ctx context.Context, facultyID, groupID int64) (bool, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and sets its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// GetMessage retrieves a message with the sender's display name.
	GetMessage(ctx context.Context, id int64) (*Message, error)

	// ListMessages returns a page of a group's messages, newest first.
	ListMessages(ctx context.Context, groupID int64, limit, offset int) ([]*Message, error)
}

// PresenceStore records which actors are online in which groups.
type PresenceStore interface {
	// SetOnlineStatus upserts the actor's status for a group.
	SetOnlineStatus(ctx context.Context, userID int64, userType UserType, groupID int64, online bool, at time.Time) error

	// ListOnline lists actors currently marked online in a group.
	ListOnline(ctx context.Context, groupID int64) ([]*OnlineUser, error)

	// ResetOnlineStatus marks every actor offline.
	ResetOnlineStatus(ctx context.Context, at time.Time) (int64, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	MembershipStore
	MessageStore
	PresenceStore

	// Close closes the underlying database connection.
	Close() error
}
