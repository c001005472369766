package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamslot/backend/internal/models"
)

// Repository persists committed grids per team and default templates per user.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an availability repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListTeam returns the committed grid of every member of teamID that has saved one.
func (r *Repository) ListTeam(ctx context.Context, teamID uuid.UUID) (models.TeamAvailabilities, error) {
	const q = `SELECT a.user_id, a.slots FROM availabilities a
		INNER JOIN team_members tm ON tm.user_id = a.user_id AND tm.team_id = a.team_id
		WHERE a.team_id = $1`
	rows, err := r.pool.Query(ctx, q, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := models.TeamAvailabilities{}
	for rows.Next() {
		var userID uuid.UUID
		var raw []byte
		if err := rows.Scan(&userID, &raw); err != nil {
			return nil, err
		}
		var a models.Availability
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode availability for %s: %w", userID, err)
		}
		out[userID] = a.Clone()
	}
	return out, rows.Err()
}

// Save upserts the committed grid of userID within teamID.
func (r *Repository) Save(ctx context.Context, teamID, userID uuid.UUID, a models.Availability) error {
	raw, err := json.Marshal(a.Clone())
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	const q = `INSERT INTO availabilities (team_id, user_id, slots)
		VALUES ($1, $2, $3)
		ON CONFLICT (team_id, user_id) DO UPDATE SET slots = EXCLUDED.slots, updated_at = NOW()`
	_, err = r.pool.Exec(ctx, q, teamID, userID, raw)
	return err
}

// GetDefault returns the default template of userID. ok is false when none was saved.
func (r *Repository) GetDefault(ctx context.Context, userID uuid.UUID) (a models.Availability, ok bool, err error) {
	const q = `SELECT slots FROM availability_defaults WHERE user_id = $1`
	var raw []byte
	if err := r.pool.QueryRow(ctx, q, userID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, false, fmt.Errorf("decode default availability: %w", err)
	}
	return a.Clone(), true, nil
}

// SaveDefault upserts the default template of userID.
func (r *Repository) SaveDefault(ctx context.Context, userID uuid.UUID, a models.Availability) error {
	raw, err := json.Marshal(a.Clone())
	if err != nil {
		return fmt.Errorf("encode availability: %w", err)
	}
	const q = `INSERT INTO availability_defaults (user_id, slots)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET slots = EXCLUDED.slots, updated_at = NOW()`
	_, err = r.pool.Exec(ctx, q, userID, raw)
	return err
}
