package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/studygroup/groupchat-server/internal/store"
)

//go:embed schema.sql
var schema string

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, nil)
}

// NewWithSetup opens the database, applies the schema and then runs setup.
// Useful for tests that seed fixtures.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== MembershipStore implementation ====

// IsGroupMember reports whether a student has a membership row for the group.
func (s *SQLiteStore) IsGroupMember(ctx context.Context, studentID, groupID int64) (bool, error) {
	query := `
		SELECT 1 FROM group_members
		WHERE student_id = ? AND group_id = ?
	`
	return s.exists(ctx, query, studentID, groupID)
}

// IsGroupMentor reports whether a faculty member mentors the group.
func (s *SQLiteStore) IsGroupMentor(ctx context.Context, facultyID, groupID int64) (bool, error) {
	query := `
		SELECT 1 FROM study_groups
		WHERE id = ? AND faculty_mentor_id = ?
	`
	return s.exists(ctx, query, groupID, facultyID)
}

func (s *SQLiteStore) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query membership: %w", err)
	}
	return true, nil
}

// ==== MessageStore implementation ====

const messageColumns = `
	m.id, m.group_id, m.sender_id, m.sender_type, m.content,
	m.attachment_name, m.attachment_url, m.attachment_size, m.sent_at,
	COALESCE(
		CASE m.sender_type
			WHEN 'student' THEN s.full_name
			WHEN 'faculty' THEN f.first_name || ' ' || f.last_name
		END,
		'Unknown'
	) AS sender_name
`

const messageJoins = `
	FROM messages m
	LEFT JOIN students s ON m.sender_id = s.id AND m.sender_type = 'student'
	LEFT JOIN faculty f ON m.sender_id = f.id AND m.sender_type = 'faculty'
`

// SaveMessage persists a message to storage.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (group_id, sender_id, sender_type, content,
			attachment_name, attachment_url, attachment_size, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	var name, url sql.NullString
	var size sql.NullInt64
	if a := msg.Attachment; a != nil {
		name = sql.NullString{String: a.Name, Valid: true}
		url = sql.NullString{String: a.URL, Valid: true}
		size = sql.NullInt64{Int64: a.Size, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query,
		msg.GroupID, msg.SenderID, string(msg.SenderType), msg.Content,
		name, url, size, msg.SentAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// GetMessage retrieves a message with the sender's display name.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `SELECT ` + messageColumns + messageJoins + ` WHERE m.id = ?`

	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return msg, nil
}

// ListMessages returns a page of a group's messages, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, groupID int64, limit, offset int) ([]*store.Message, error) {
	query := `SELECT ` + messageColumns + messageJoins + `
		WHERE m.group_id = ?
		ORDER BY m.sent_at DESC, m.id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, groupID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var (
		msg        store.Message
		senderType string
		name, url  sql.NullString
		size       sql.NullInt64
	)
	err := row.Scan(
		&msg.ID,
		&msg.GroupID,
		&msg.SenderID,
		&senderType,
		&msg.Content,
		&name,
		&url,
		&size,
		&msg.SentAt,
		&msg.SenderName,
	)
	if err != nil {
		return nil, err
	}

	msg.SenderType = store.UserType(senderType)
	if url.Valid {
		msg.Attachment = &store.Attachment{Name: name.String, URL: url.String, Size: size.Int64}
	}
	return &msg, nil
}

// ==== PresenceStore implementation ====

// SetOnlineStatus upserts the actor's status for a group.
func (s *SQLiteStore) SetOnlineStatus(ctx context.Context, userID int64, userType store.UserType, groupID int64, online bool, at time.Time) error {
	query := `
		INSERT INTO user_online_status (user_id, user_type, group_id, is_online, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, user_type, group_id)
		DO UPDATE SET is_online = excluded.is_online, last_seen = excluded.last_seen
	`
	if _, err := s.db.ExecContext(ctx, query, userID, string(userType), groupID, online, at.UTC()); err != nil {
		return fmt.Errorf("upsert online status: %w", err)
	}
	return nil
}

// ListOnline lists actors currently marked online in a group.
func (s *SQLiteStore) ListOnline(ctx context.Context, groupID int64) ([]*store.OnlineUser, error) {
	query := `
		SELECT u.user_id, u.user_type, u.last_seen,
			COALESCE(
				CASE u.user_type
					WHEN 'student' THEN s.full_name
					WHEN 'faculty' THEN f.first_name || ' ' || f.last_name
				END,
				'Unknown'
			) AS user_name
		FROM user_online_status u
		LEFT JOIN students s ON u.user_id = s.id AND u.user_type = 'student'
		LEFT JOIN faculty f ON u.user_id = f.id AND u.user_type = 'faculty'
		WHERE u.group_id = ? AND u.is_online = 1
		ORDER BY u.last_seen ASC, u.user_id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("query online users: %w", err)
	}
	defer rows.Close()

	var users []*store.OnlineUser
	for rows.Next() {
		var (
			u        store.OnlineUser
			userType string
		)
		if err := rows.Scan(&u.UserID, &userType, &u.LastSeen, &u.UserName); err != nil {
			return nil, fmt.Errorf("scan online user: %w", err)
		}
		u.UserType = store.UserType(userType)
		users = append(users, &u)
	}

	return users, rows.Err()
}

// ResetOnlineStatus marks every actor offline.
func (s *SQLiteStore) ResetOnlineStatus(ctx context.Context, at time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE user_online_status SET is_online = 0, last_seen = ? WHERE is_online = 1`,
		at.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("reset online status: %w", err)
	}
	return result.RowsAffected()
}

// ==== Directory fixtures ====
// Users and groups are managed by the portal; these helpers exist for seeding.

// CreateStudent inserts a student and returns its id.
func (s *SQLiteStore) CreateStudent(ctx context.Context, fullName, email string) (int64, error) {
	return s.insert(ctx, `INSERT INTO students (full_name, email) VALUES (?, ?)`, fullName, email)
}

// CreateFaculty inserts a faculty member and returns its id.
func (s *SQLiteStore) CreateFaculty(ctx context.Context, firstName, lastName, email string) (int64, error) {
	return s.insert(ctx, `INSERT INTO faculty (first_name, last_name, email) VALUES (?, ?, ?)`, firstName, lastName, email)
}

// CreateGroup inserts a study group. mentorID may be nil.
func (s *SQLiteStore) CreateGroup(ctx context.Context, name string, mentorID *int64) (int64, error) {
	return s.insert(ctx, `INSERT INTO study_groups (name, faculty_mentor_id) VALUES (?, ?)`, name, mentorID)
}

// AddGroupMember adds a student to a group.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, groupID, studentID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_members (group_id, student_id) VALUES (?, ?)`,
		groupID, studentID,
	)
	if err != nil {
		return fmt.Errorf("insert group member: %w", err)
	}
	return nil
}

func (s *SQLiteStore) insert(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}
