package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `user_id, username, email, password_hash, user_level, banned,
	first_name, last_name, license_number, street_address, city, state, zip, phone,
	created_at, modified_at, last_login`

// searchColumns maps allow-listed search keys to their column names
var searchColumns = map[string]string{
	"username":  "username",
	"email":     "email",
	"last_name": "last_name",
}

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var level int16

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &level, &user.Banned,
		&user.FirstName, &user.LastName, &user.LicenseNumber, &user.StreetAddress,
		&user.City, &user.State, &user.Zip, &user.Phone,
		&user.CreatedAt, &user.ModifiedAt, &user.LastLogin,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.Level = models.Level(level)
	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

// manageFilter builds the WHERE clause shared by CountManaged and ListManaged.
// Only users strictly below the actor's level are ever matched.
func manageFilter(q models.SearchQuery) (string, []any) {
	clauses := []string{"user_level < $1"}
	args := []any{int16(q.ActorLevel)}

	if q.Searching() {
		if column, ok := searchColumns[q.SearchIn]; ok {
			args = append(args, "%"+escapeLike(q.SearchFor)+"%")
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
		}
	}

	return strings.Join(clauses, " AND "), args
}

// escapeLike escapes LIKE wildcards so search input is matched literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// CountManaged returns the number of users matching the management query
func (r *UserRepository) CountManaged(ctx context.Context, q models.SearchQuery) (int, error) {
	where, args := manageFilter(q)
	query := `SELECT COUNT(*) FROM users WHERE ` + where

	var total int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", database.MapPostgresError(err))
	}
	return total, nil
}

// ListManaged returns the current page of users matching the management query
func (r *UserRepository) ListManaged(ctx context.Context, q models.SearchQuery) ([]*models.User, error) {
	where, args := manageFilter(q)
	args = append(args, q.PerPage, q.Offset())
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY username ASC LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

// CountByLevel returns the number of accounts at exactly the given level
func (r *UserRepository) CountByLevel(ctx context.Context, level models.Level) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE user_level = $1`, int16(level)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count users by level: %w", err)
	}
	return total, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// GetByLogin finds a user by username or email address
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1) LIMIT 1`

	return scanUserRow(r.pool.QueryRow(ctx, query, login))
}

// LevelOf returns only the level of a user
func (r *UserRepository) LevelOf(ctx context.Context, id int64) (models.Level, error) {
	var level int16
	err := r.pool.QueryRow(ctx, `SELECT user_level FROM users WHERE user_id = $1`, id).Scan(&level)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return models.Level(level), nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.ModifiedAt = now

	query := `
		INSERT INTO users (username, email, password_hash, user_level, banned,
			first_name, last_name, license_number, street_address, city, state, zip, phone,
			created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.Username, user.Email, user.PasswordHash, int16(user.Level), user.Banned,
		user.FirstName, user.LastName, user.LicenseNumber, user.StreetAddress,
		user.City, user.State, user.Zip, user.Phone,
		user.CreatedAt, user.ModifiedAt,
	))
}

// UpdateBelowLevel writes every profile field of a user ranked strictly below actorLevel.
// An empty PasswordHash keeps the stored hash. ErrNotFound covers both a missing
// user and one the actor does not outrank.
func (r *UserRepository) UpdateBelowLevel(ctx context.Context, id int64, actorLevel models.Level, user *models.User) (*models.User, error) {
	user.ModifiedAt = time.Now()

	query := `
		UPDATE users SET username = $1, email = $2,
			password_hash = COALESCE(NULLIF($3, ''), password_hash),
			user_level = $4, banned = $5, first_name = $6, last_name = $7, license_number = $8,
			street_address = $9, city = $10, state = $11, zip = $12, phone = $13, modified_at = $14
		WHERE user_id = $15 AND user_level < $16
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.Username, user.Email, user.PasswordHash, int16(user.Level), user.Banned,
		user.FirstName, user.LastName, user.LicenseNumber, user.StreetAddress,
		user.City, user.State, user.Zip, user.Phone, user.ModifiedAt, id, int16(actorLevel),
	))
}

// DeleteBelowLevel deletes the user only when their level is strictly below actorLevel.
// It reports whether a row was removed.
func (r *UserRepository) DeleteBelowLevel(ctx context.Context, id int64, actorLevel models.Level) (bool, error) {
	query := `DELETE FROM users WHERE user_id = $1 AND user_level < $2`

	result, err := r.pool.Exec(ctx, query, id, int16(actorLevel))
	if err != nil {
		return false, database.MapPostgresError(err)
	}

	return result.RowsAffected() == 1, nil
}

// TouchLastLogin records a successful login
func (r *UserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login = $1 WHERE user_id = $2`, at, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	return nil
}
