package training

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/myrjola/coachreports/internal/sqlite"
)

const userColumns = `id, email, display_name, role, trainer_id, receive_reports`

// sqliteUserRepository implements userRepository.
type sqliteUserRepository struct {
	db *sqlite.Database
}

func newSQLiteUserRepository(db *sqlite.Database) *sqliteUserRepository {
	return &sqliteUserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var (
		u         User
		trainerID sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.Role, &trainerID, &u.ReceiveReports); err != nil {
		return User{}, err //nolint:wrapcheck // callers wrap with context.
	}
	if trainerID.Valid {
		id := int(trainerID.Int64)
		u.TrainerID = &id
	}
	return u, nil
}

func (r *sqliteUserRepository) getBy(ctx context.Context, column string, value any) (User, error) {
	u, err := scanUser(r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user by %s: %w", column, err)
	}
	return u, nil
}

// Get retrieves a user by id.
func (r *sqliteUserRepository) Get(ctx context.Context, id int) (User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail retrieves a user by email address, ignoring case.
func (r *sqliteUserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(r.db.ReadOnly.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? COLLATE NOCASE`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user by email: %w", err)
	}
	return u, nil
}

// GetByTokenHash retrieves the user owning an API token.
func (r *sqliteUserRepository) GetByTokenHash(ctx context.Context, tokenHash string) (User, error) {
	return r.getBy(ctx, "token_hash", tokenHash)
}

// ListClients returns every client ordered by name.
func (r *sqliteUserRepository) ListClients(ctx context.Context) ([]User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE role = 'client' ORDER BY display_name, id`)
}

// ListReportRecipients returns the clients that opted in to report mails.
func (r *sqliteUserRepository) ListReportRecipients(ctx context.Context) ([]User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users
		WHERE role = 'client' AND receive_reports = 1
		ORDER BY id`)
}

func (r *sqliteUserRepository) list(ctx context.Context, query string) (_ []User, err error) {
	rows, err := r.db.ReadOnly.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer func() { err = closeRows(rows, err) }()
	var users []User
	for rows.Next() {
		var u User
		if u, err = scanUser(rows); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
