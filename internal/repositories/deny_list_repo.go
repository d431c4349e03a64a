package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5"
)

type DenyListRepository struct {
	db *database.DB
}

func NewDenyListRepository(db *database.DB) *DenyListRepository {
	return &DenyListRepository{db: db}
}

// List returns every deny list entry, newest first
func (r *DenyListRepository) List(ctx context.Context) ([]models.DenyListEntry, error) {
	query := `SELECT id, ip_address, reason_code, created_at FROM denied_access ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query deny list: %w", err)
	}
	defer rows.Close()

	entries := make([]models.DenyListEntry, 0)
	for rows.Next() {
		var e models.DenyListEntry
		var reason int16
		if err := rows.Scan(&e.ID, &e.IPAddress, &reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deny list entry: %w", err)
		}
		e.ReasonCode = int(reason)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return entries, nil
}

// Apply performs the addition and removals of a denial request in one transaction
func (r *DenyListRepository) Apply(ctx context.Context, req models.DenialRequest) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if req.Add != nil {
			_, err := tx.Exec(ctx,
				`INSERT INTO denied_access (ip_address, reason_code) VALUES ($1, $2)`,
				req.Add.IPAddress, int16(req.Add.ReasonCode),
			)
			if err != nil {
				return database.MapPostgresError(err)
			}
		}

		if len(req.RemoveIPs) > 0 {
			_, err := tx.Exec(ctx, `DELETE FROM denied_access WHERE ip_address = ANY($1)`, req.RemoveIPs)
			if err != nil {
				return database.MapPostgresError(err)
			}
		}

		return nil
	})
}
