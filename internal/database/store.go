package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/edgard/relaybot/internal/errors"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts. Lookups
// return nil, nil when the row does not exist.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	// GetConfigValue returns the persisted value of a runtime setting.
	GetConfigValue(ctx context.Context, key string) (string, bool, error)

	// SetConfigValue inserts or replaces a runtime setting.
	SetConfigValue(ctx context.Context, key, value string) error

	// EnsureUser returns the user, creating it with default values on first contact.
	EnsureUser(ctx context.Context, userID int64) (*User, error)

	// GetUser retrieves a user by id.
	GetUser(ctx context.Context, userID int64) (*User, error)

	// GetUserByThread resolves a staff thread to its user.
	GetUserByThread(ctx context.Context, threadID int) (*User, error)

	// AdvanceState moves the user to `to` only if the current state is one of `from`.
	AdvanceState(ctx context.Context, userID int64, to UserState, from ...UserState) (bool, error)

	// SetState sets the state unconditionally.
	SetState(ctx context.Context, userID int64, state UserState) error

	// MarkFirstMessageSent records that the user's first message was relayed.
	MarkFirstMessageSent(ctx context.Context, userID int64) error

	// IncrementBlockCount bumps block_count of an unblocked user and returns the new count.
	IncrementBlockCount(ctx context.Context, userID int64) (int, error)

	// SetBlocked blocks or unblocks a user. Unblocking resets block_count.
	SetBlocked(ctx context.Context, userID int64, blocked bool) error

	// ClaimThread binds threadID to the user only if no thread is bound yet.
	ClaimThread(ctx context.Context, userID int64, threadID int, profile ProfileSnapshot) (bool, error)

	// ClearThread unbinds threadID from the user if it is still the bound thread.
	ClearThread(ctx context.Context, userID int64, threadID int) (bool, error)

	// GetCachedMessage returns the cached text of a relayed message.
	GetCachedMessage(ctx context.Context, userID int64, messageID int) (*CachedMessage, error)

	// SaveCachedMessage upserts a cached message and prunes older entries of the user.
	SaveCachedMessage(ctx context.Context, msg *CachedMessage) error

	// GetCapture returns the pending input capture of an admin.
	GetCapture(ctx context.Context, adminID int64) (*CaptureState, error)

	// SetCapture stores the pending input capture of an admin.
	SetCapture(ctx context.Context, state *CaptureState) error

	// ClearCapture removes the pending input capture of an admin.
	ClearCapture(ctx context.Context, adminID int64) error

	// DeleteExpiredCaptures removes captures created before the cutoff.
	DeleteExpiredCaptures(ctx context.Context, before time.Time) (int64, error)
}

// StoreOption configures the sqlx store.
type StoreOption func(*sqlxStore)

// WithMessageCacheRetention keeps at most n cached messages per user.
func WithMessageCacheRetention(n int) StoreOption {
	return func(s *sqlxStore) {
		if n > 0 {
			s.retention = n
		}
	}
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db        *sqlx.DB
	logger    *slog.Logger
	retention int
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger, opts ...StoreOption) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &sqlxStore{
		db:        db,
		logger:    logger.With("component", "store"),
		retention: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const userColumns = `id, state, is_blocked, block_count, first_message_sent, thread_id,
	profile_name, profile_username, first_contact_at, created_at, updated_at`

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RunSQLMaintenance executes VACUUM. It must run outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	_, err := s.db.ExecContext(ctx, "VACUUM")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return apperrors.NewStoreError("failed to execute VACUUM", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}

// GetConfigValue returns the persisted value of key.
func (s *sqlxStore) GetConfigValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.GetContext(ctx, &value, s.db.Rebind(`SELECT value FROM config WHERE key = ?`), key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error reading config value", "key", key, "error", err)
		return "", false, apperrors.NewStoreError(fmt.Sprintf("failed to read config %q", key), err)
	}
	return value, true, nil
}

// SetConfigValue inserts or replaces the value of key.
func (s *sqlxStore) SetConfigValue(ctx context.Context, key, value string) error {
	query := s.db.Rebind(`
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`)
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		s.logger.ErrorContext(ctx, "Error writing config value", "key", key, "error", err)
		return apperrors.NewStoreError(fmt.Sprintf("failed to write config %q", key), err)
	}
	s.logger.DebugContext(ctx, "Config value saved", "key", key)
	return nil
}

// EnsureUser creates the user with default values if absent and returns the current row.
func (s *sqlxStore) EnsureUser(ctx context.Context, userID int64) (*User, error) {
	if userID == 0 {
		return nil, apperrors.NewValidationError("user_id cannot be zero", nil)
	}

	now := time.Now().UTC()
	query := s.db.Rebind(`
		INSERT INTO users (id, state, is_blocked, block_count, first_message_sent, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`)
	result, err := s.db.ExecContext(ctx, query, userID, StateNew, false, false, now, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating user", "user_id", userID, "error", err)
		return nil, apperrors.NewStoreError(fmt.Sprintf("failed to create user %d", userID), err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 1 {
		s.logger.InfoContext(ctx, "Created user on first contact", "user_id", userID)
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user %d vanished after insert", userID), nil)
	}
	return user, nil
}

// GetUser retrieves a user by id. Returns nil, nil if not found.
func (s *sqlxStore) GetUser(ctx context.Context, userID int64) (*User, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var user User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user found", "user_id", userID)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching user", "user_id", userID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user by ID", "user_id", userID, "error", err)
		return nil, apperrors.NewStoreError(fmt.Sprintf("failed to get user %d", userID), err)
	}
	return &user, nil
}

// GetUserByThread resolves a staff thread to its user. Returns nil, nil if not found.
func (s *sqlxStore) GetUserByThread(ctx context.Context, threadID int) (*User, error) {
	if threadID == 0 {
		return nil, apperrors.NewValidationError("thread_id cannot be zero", nil)
	}

	var user User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE thread_id = ?`), threadID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user bound to thread", "thread_id", threadID)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user by thread", "thread_id", threadID, "error", err)
		return nil, apperrors.NewStoreError(fmt.Sprintf("failed to get user for thread %d", threadID), err)
	}
	return &user, nil
}

// AdvanceState moves the user to `to` when the current state is one of `from`.
func (s *sqlxStore) AdvanceState(ctx context.Context, userID int64, to UserState, from ...UserState) (bool, error) {
	if !to.Valid() {
		return false, apperrors.NewValidationError(fmt.Sprintf("invalid state %q", to), nil)
	}
	if len(from) == 0 {
		return false, nil
	}

	query, args, err := sqlx.In(`UPDATE users SET state = ?, updated_at = ? WHERE id = ? AND state IN (?)`,
		to, time.Now().UTC(), userID, from)
	if err != nil {
		return false, apperrors.NewStoreError("failed to build state transition query", err)
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error advancing user state", "user_id", userID, "to", to, "error", err)
		return false, apperrors.NewStoreError(fmt.Sprintf("failed to advance state of user %d", userID), err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewStoreError("failed to read affected rows", err)
	}
	if affected == 1 {
		s.logger.InfoContext(ctx, "User state advanced", "user_id", userID, "to", to)
	}
	return affected == 1, nil
}

// SetState sets the state unconditionally.
func (s *sqlxStore) SetState(ctx context.Context, userID int64, state UserState) error {
	if !state.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("invalid state %q", state), nil)
	}
	query := s.db.Rebind(`UPDATE users SET state = ?, updated_at = ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, state, time.Now().UTC(), userID); err != nil {
		s.logger.ErrorContext(ctx, "Error setting user state", "user_id", userID, "state", state, "error", err)
		return apperrors.NewStoreError(fmt.Sprintf("failed to set state of user %d", userID), err)
	}
	return nil
}

// MarkFirstMessageSent records that the user's first message was relayed.
func (s *sqlxStore) MarkFirstMessageSent(ctx context.Context, userID int64) error {
	query := s.db.Rebind(`UPDATE users SET first_message_sent = ?, updated_at = ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, true, time.Now().UTC(), userID); err != nil {
		s.logger.ErrorContext(ctx, "Error marking first message", "user_id", userID, "error", err)
		return apperrors.NewStoreError(fmt.Sprintf("failed to mark first message of user %d", userID), err)
	}
	return nil
}

// IncrementBlockCount bumps block_count while the user is unblocked and returns the current count.
func (s *sqlxStore) IncrementBlockCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		update := tx.Rebind(`UPDATE users SET block_count = block_count + 1, updated_at = ? WHERE id = ? AND is_blocked = ?`)
		if _, err := tx.ExecContext(ctx, update, time.Now().UTC(), userID, false); err != nil {
			return err
		}
		return tx.GetContext(ctx, &count, tx.Rebind(`SELECT block_count FROM users WHERE id = ?`), userID)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", userID), err)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error incrementing block count", "user_id", userID, "error", err)
		return 0, apperrors.NewStoreError(fmt.Sprintf("failed to increment block count of user %d", userID), err)
	}
	s.logger.DebugContext(ctx, "Block count incremented", "user_id", userID, "block_count", count)
	return count, nil
}

// SetBlocked blocks or unblocks a user. Unblocking resets block_count to zero.
func (s *sqlxStore) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	var query string
	if blocked {
		query = `UPDATE users SET is_blocked = ?, updated_at = ? WHERE id = ?`
	} else {
		query = `UPDATE users SET is_blocked = ?, block_count = 0, updated_at = ? WHERE id = ?`
	}
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), blocked, time.Now().UTC(), userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating block flag", "user_id", userID, "blocked", blocked, "error", err)
		return apperrors.NewStoreError(fmt.Sprintf("failed to update block flag of user %d", userID), err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("user %d not found", userID), nil)
	}
	s.logger.InfoContext(ctx, "User block flag updated", "user_id", userID, "blocked", blocked)
	return nil
}

// ClaimThread binds threadID to the user only if no thread is bound yet.
// It returns false when another writer bound a thread first.
func (s *sqlxStore) ClaimThread(ctx context.Context, userID int64, threadID int, profile ProfileSnapshot) (bool, error) {
	if threadID == 0 {
		return false, apperrors.NewValidationError("thread_id cannot be zero", nil)
	}

	firstContact := profile.FirstContactAt
	if firstContact.IsZero() {
		firstContact = time.Now().UTC()
	}

	query := s.db.Rebind(`
		UPDATE users SET
			thread_id = ?,
			profile_name = ?,
			profile_username = ?,
			first_contact_at = COALESCE(first_contact_at, ?),
			updated_at = ?
		WHERE id = ? AND thread_id IS NULL`)
	result, err := s.db.ExecContext(ctx, query,
		threadID,
		sql.NullString{String: profile.Name, Valid: profile.Name != ""},
		sql.NullString{String: profile.Username, Valid: profile.Username != ""},
		firstContact,
		time.Now().UTC(),
		userID,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error claiming thread", "user_id", userID, "thread_id", threadID, "error", err)
		return false, apperrors.NewStoreError(fmt.Sprintf("failed to bind thread %d to user %d", threadID, userID), err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewStoreError("failed to read affected rows", err)
	}
	if affected == 0 {
		s.logger.WarnContext(ctx, "Thread claim lost, user already has a thread", "user_id", userID, "thread_id", threadID)
		return false, nil
	}
	s.logger.InfoContext(ctx, "Thread bound to user", "user_id", userID, "thread_id", threadID)
	return true, nil
}

// ClearThread unbinds threadID from the user if it is still the bound thread.
func (s *sqlxStore) ClearThread(ctx context.Context, userID int64, threadID int) (bool, error) {
	query := s.db.Rebind(`UPDATE users SET thread_id = NULL, updated_at = ? WHERE id = ? AND thread_id = ?`)
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), userID, threadID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error clearing thread", "user_id", userID, "thread_id", threadID, "error", err)
		return false, apperrors.NewStoreError(fmt.Sprintf("failed to clear thread of user %d", userID), err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewStoreError("failed to read affected rows", err)
	}
	return affected == 1, nil
}

// GetCachedMessage returns the cached text of a relayed message. Returns nil, nil if not found.
func (s *sqlxStore) GetCachedMessage(ctx context.Context, userID int64, messageID int) (*CachedMessage, error) {
	var msg CachedMessage
	query := s.db.Rebind(`SELECT user_id, message_id, text, created_at FROM message_cache WHERE user_id = ? AND message_id = ?`)
	err := s.db.GetContext(ctx, &msg, query, userID, messageID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error reading cached message", "user_id", userID, "message_id", messageID, "error", err)
		return nil, apperrors.NewStoreError("failed to read cached message", err)
	}
	return &msg, nil
}

// SaveCachedMessage upserts msg and keeps only the newest entries of the user.
func (s *sqlxStore) SaveCachedMessage(ctx context.Context, msg *CachedMessage) error {
	if msg == nil {
		return apperrors.NewValidationError("cannot save nil cached message", nil)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	var pruned int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		upsert := tx.Rebind(`
			INSERT INTO message_cache (user_id, message_id, text, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id, message_id) DO UPDATE SET text = excluded.text, created_at = excluded.created_at`)
		if _, err := tx.ExecContext(ctx, upsert, msg.UserID, msg.MessageID, msg.Text, msg.CreatedAt); err != nil {
			return err
		}

		prune := tx.Rebind(`
			DELETE FROM message_cache
			WHERE user_id = ? AND message_id NOT IN (
				SELECT message_id FROM message_cache WHERE user_id = ? ORDER BY message_id DESC LIMIT ?
			)`)
		result, err := tx.ExecContext(ctx, prune, msg.UserID, msg.UserID, s.retention)
		if err != nil {
			return err
		}
		pruned, _ = result.RowsAffected()
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving cached message", "user_id", msg.UserID, "message_id", msg.MessageID, "error", err)
		return apperrors.NewStoreError("failed to save cached message", err)
	}

	s.logger.DebugContext(ctx, "Cached message saved", "user_id", msg.UserID, "message_id", msg.MessageID, "pruned", pruned)
	return nil
}

// GetCapture returns the pending capture of adminID. Returns nil, nil if none.
func (s *sqlxStore) GetCapture(ctx context.Context, adminID int64) (*CaptureState, error) {
	var state CaptureState
	query := s.db.Rebind(`SELECT admin_id, action, target_key, created_at FROM admin_capture WHERE admin_id = ?`)
	err := s.db.GetContext(ctx, &state, query, adminID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error reading admin capture", "admin_id", adminID, "error", err)
		return nil, apperrors.NewStoreError("failed to read admin capture", err)
	}
	return &state, nil
}

// SetCapture stores the pending capture of an admin, replacing any previous one.
func (s *sqlxStore) SetCapture(ctx context.Context, state *CaptureState) error {
	if state == nil || state.AdminID == 0 || state.TargetKey == "" {
		return apperrors.NewValidationError("capture state requires admin id and target key", nil)
	}
	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
	query := s.db.Rebind(`
		INSERT INTO admin_capture (admin_id, action, target_key, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (admin_id) DO UPDATE SET
			action = excluded.action, target_key = excluded.target_key, created_at = excluded.created_at`)
	if _, err := s.db.ExecContext(ctx, query, state.AdminID, state.Action, state.TargetKey, state.CreatedAt); err != nil {
		s.logger.ErrorContext(ctx, "Error saving admin capture", "admin_id", state.AdminID, "error", err)
		return apperrors.NewStoreError("failed to save admin capture", err)
	}
	return nil
}

// ClearCapture removes the pending capture of adminID.
func (s *sqlxStore) ClearCapture(ctx context.Context, adminID int64) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM admin_capture WHERE admin_id = ?`), adminID); err != nil {
		s.logger.ErrorContext(ctx, "Error clearing admin capture", "admin_id", adminID, "error", err)
		return apperrors.NewStoreError("failed to clear admin capture", err)
	}
	return nil
}

// DeleteExpiredCaptures removes captures created before the cutoff.
func (s *sqlxStore) DeleteExpiredCaptures(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM admin_capture WHERE created_at < ?`), before.UTC())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting expired captures", "error", err)
		return 0, apperrors.NewStoreError("failed to delete expired captures", err)
	}
	count, _ := result.RowsAffected()
	return count, nil
}

// withTx runs fn in a transaction, rolling back unless fn succeeds and the commit goes through.
func (s *sqlxStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	// Successfully committed, set tx to nil to avoid rollback
	tx = nil
	return nil
}
