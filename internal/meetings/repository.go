package meetings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamslot/backend/internal/models"
)

// Repository persists meetings and their ordered attendee lists.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a meetings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByTeam returns every meeting of teamID with attendees, ascending by start.
func (r *Repository) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]models.Meeting, error) {
	const q = `SELECT id, team_id, title, starts_at, ends_at, duration_minutes, COALESCE(created_by, '00000000-0000-0000-0000-000000000000'::uuid), created_at, updated_at
		FROM meetings WHERE team_id = $1 ORDER BY starts_at ASC`
	rows, err := r.pool.Query(ctx, q, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Meeting
	byID := map[uuid.UUID]int{}
	var ids []uuid.UUID
	for rows.Next() {
		var m models.Meeting
		if err := rows.Scan(&m.ID, &m.TeamID, &m.Title, &m.StartTime, &m.EndTime, &m.DurationMinutes, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.Attendees = []models.User{}
		byID[m.ID] = len(list)
		ids = append(ids, m.ID)
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}

	const qa = `SELECT ma.meeting_id, u.id, u.email, COALESCE(u.full_name, ''), COALESCE(u.avatar_key, ''), u.created_at, u.updated_at
		FROM meeting_attendees ma
		INNER JOIN users u ON u.id = ma.user_id
		WHERE ma.meeting_id = ANY($1)
		ORDER BY ma.meeting_id, ma.position`
	arows, err := r.pool.Query(ctx, qa, ids)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var meetingID uuid.UUID
		var u models.User
		if err := arows.Scan(&meetingID, &u.ID, &u.Email, &u.Name, &u.AvatarKey, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if i, ok := byID[meetingID]; ok {
			list[i].Attendees = append(list[i].Attendees, u)
		}
	}
	return list, arows.Err()
}

// Create inserts m and its attendees in one transaction.
func (r *Repository) Create(ctx context.Context, m models.Meeting) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `INSERT INTO meetings (id, team_id, title, starts_at, ends_at, duration_minutes, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		if _, err := tx.Exec(ctx, q, m.ID, m.TeamID, m.Title, m.StartTime, m.EndTime, m.DurationMinutes, m.CreatedBy, m.CreatedAt, m.UpdatedAt); err != nil {
			return fmt.Errorf("insert meeting: %w", err)
		}
		return insertAttendees(ctx, tx, m)
	})
}

// Update rewrites the editable fields and attendee list of m.
func (r *Repository) Update(ctx context.Context, m models.Meeting) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `UPDATE meetings SET title = $2, starts_at = $3, ends_at = $4, duration_minutes = $5, updated_at = $6
			WHERE id = $1`
		tag, err := tx.Exec(ctx, q, m.ID, m.Title, m.StartTime, m.EndTime, m.DurationMinutes, m.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update meeting: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrMeetingNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM meeting_attendees WHERE meeting_id = $1`, m.ID); err != nil {
			return fmt.Errorf("clear attendees: %w", err)
		}
		return insertAttendees(ctx, tx, m)
	})
}

// Delete removes meeting id. Attendees cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM meetings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMeetingNotFound
	}
	return nil
}

func insertAttendees(ctx context.Context, tx pgx.Tx, m models.Meeting) error {
	const q = `INSERT INTO meeting_attendees (meeting_id, user_id, position) VALUES ($1, $2, $3)`
	batch := &pgx.Batch{}
	for i, a := range m.Attendees {
		batch.Queue(q, m.ID, a.ID, i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert attendees: %w", err)
	}
	return nil
}
