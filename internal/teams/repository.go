package teams

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/teamslot/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("team not found")
	ErrSlugTaken = errors.New("a team with this slug already exists")
)

// Repository handles team and team_members persistence. A user belongs to at most one team.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a teams repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create creates a team and makes ownerID its owner, moving them out of any previous team.
func (r *Repository) Create(ctx context.Context, team *models.Team, ownerID uuid.UUID) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const q = `INSERT INTO teams (id, name, slug)
			VALUES (gen_random_uuid(), $1, $2)
			RETURNING id, created_at, updated_at`
		err := tx.QueryRow(ctx, q, team.Name, team.Slug).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrSlugTaken
			}
			return fmt.Errorf("insert team: %w", err)
		}
		return addMember(ctx, tx, team.ID, ownerID, models.TeamRoleOwner)
	})
}

func scanTeam(row pgx.Row) (*models.Team, error) {
	var t models.Team
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByID returns a team by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Team, error) {
	const q = `SELECT id, name, slug, created_at, updated_at FROM teams WHERE id = $1`
	return scanTeam(r.pool.QueryRow(ctx, q, id))
}

// GetBySlug returns a team by slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Team, error) {
	const q = `SELECT id, name, slug, created_at, updated_at FROM teams WHERE slug = $1`
	return scanTeam(r.pool.QueryRow(ctx, q, slug))
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func addMember(ctx context.Context, db execer, teamID, userID uuid.UUID, role string) error {
	const q = `INSERT INTO team_members (team_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET team_id = EXCLUDED.team_id, role = EXCLUDED.role, joined_at = NOW()`
	if _, err := db.Exec(ctx, q, teamID, userID, role); err != nil {
		return fmt.Errorf("add team member: %w", err)
	}
	return nil
}

// AddMember puts userID in teamID with role, moving them out of any previous team.
func (r *Repository) AddMember(ctx context.Context, teamID, userID uuid.UUID, role string) error {
	return addMember(ctx, r.pool, teamID, userID, role)
}

// RemoveMember removes userID from teamID.
func (r *Repository) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Membership returns the team and role of userID, or uuid.Nil when they have no team.
func (r *Repository) Membership(ctx context.Context, userID uuid.UUID) (uuid.UUID, string, error) {
	var teamID uuid.UUID
	var role string
	err := r.pool.QueryRow(ctx, `SELECT team_id, role FROM team_members WHERE user_id = $1`, userID).Scan(&teamID, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, "", nil
	}
	if err != nil {
		return uuid.Nil, "", err
	}
	return teamID, role, nil
}

// TeamForUser returns the team of userID, or uuid.Nil when they have none.
func (r *Repository) TeamForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	teamID, _, err := r.Membership(ctx, userID)
	return teamID, err
}

// Roster returns the members of a team in join order.
func (r *Repository) Roster(ctx context.Context, teamID uuid.UUID) ([]models.TeamMember, error) {
	const q = `SELECT u.id, u.email, u.full_name, COALESCE(u.avatar_key,''), u.created_at, u.updated_at,
		tm.role, tm.joined_at
		FROM team_members tm
		INNER JOIN users u ON u.id = tm.user_id
		WHERE tm.team_id = $1
		ORDER BY tm.joined_at ASC, u.id`
	rows, err := r.pool.Query(ctx, q, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.TeamMember
	for rows.Next() {
		var m models.TeamMember
		if err := rows.Scan(&m.ID, &m.Email, &m.Name, &m.AvatarKey, &m.CreatedAt, &m.UpdatedAt, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Members returns the users of a team in join order. It is the roster a planning session aggregates.
func (r *Repository) Members(ctx context.Context, teamID uuid.UUID) ([]models.User, error) {
	roster, err := r.Roster(ctx, teamID)
	if err != nil {
		return nil, err
	}
	users := make([]models.User, len(roster))
	for i, m := range roster {
		users[i] = m.User
	}
	return users, nil
}
