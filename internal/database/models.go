package database

import (
	"database/sql"
	"database/sql/driver"
	"time"
)

// UserState is a step of the verification gate.
type UserState string

const (
	StateNew              UserState = "new"
	StatePendingChallenge UserState = "pending_challenge"
	StatePendingQA        UserState = "pending_qa"
	StateVerified         UserState = "verified"
)

// Valid reports whether s is one of the known states.
func (s UserState) Valid() bool {
	switch s {
	case StateNew, StatePendingChallenge, StatePendingQA, StateVerified:
		return true
	}
	return false
}

// Value implements driver.Valuer so states bind as plain strings.
func (s UserState) Value() (driver.Value, error) {
	return string(s), nil
}

// User is an end user talking to the bot in a private chat.
// ThreadID links the user to their staff-side forum topic.
type User struct {
	ID               int64         `db:"id"`
	State            UserState     `db:"state"`
	IsBlocked        bool          `db:"is_blocked"`
	BlockCount       int           `db:"block_count"`
	FirstMessageSent bool          `db:"first_message_sent"`
	ThreadID         sql.NullInt64 `db:"thread_id"`

	ProfileName     sql.NullString `db:"profile_name"`
	ProfileUsername sql.NullString `db:"profile_username"`
	FirstContactAt  sql.NullTime   `db:"first_contact_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// HasThread reports whether a staff thread is bound to the user.
func (u *User) HasThread() bool {
	return u != nil && u.ThreadID.Valid && u.ThreadID.Int64 != 0
}

// Thread returns the bound thread id, or 0.
func (u *User) Thread() int {
	if !u.HasThread() {
		return 0
	}
	return int(u.ThreadID.Int64)
}

// ProfileSnapshot is the identity captured when a thread is created.
type ProfileSnapshot struct {
	Name           string
	Username       string
	FirstContactAt time.Time
}

// CachedMessage is the last known text of a relayed message, kept for edit diffs.
type CachedMessage struct {
	UserID    int64     `db:"user_id"`
	MessageID int       `db:"message_id"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

// CaptureAction is the kind of free-text input an admin is expected to send.
type CaptureAction string

const (
	CaptureEdit CaptureAction = "edit"
	CaptureAdd  CaptureAction = "add"
)

// CaptureState redirects an admin's next plain-text message into a settings write.
type CaptureState struct {
	AdminID   int64         `db:"admin_id"   json:"admin_id"`
	Action    CaptureAction `db:"action"     json:"action"`
	TargetKey string        `db:"target_key" json:"target_key"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// Value implements driver.Valuer so actions bind as plain strings.
func (a CaptureAction) Value() (driver.Value, error) {
	return string(a), nil
}
