package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"talentmatch/internal/database"
	"talentmatch/internal/domain/match"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MatchRepository persists match results. FindByJobAndUser doubles as
// the idempotency guard: it must be consulted before any analysis call
// and again right before persistence.
type MatchRepository interface {
	FindByJobAndUser(ctx context.Context, jobID, userID uuid.UUID) (*match.Result, error)
	Insert(ctx context.Context, m match.Result) (match.Result, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]match.Result, error)
}

type PostgresMatchRepository struct {
	db database.DB
}

func NewPostgresMatchRepository(db database.DB) *PostgresMatchRepository {
	return &PostgresMatchRepository{db: db}
}

const matchColumns = `id, job_id, user_id, match_percentage, matched_skills, missing_skills, summary, created_at`

func (r *PostgresMatchRepository) FindByJobAndUser(ctx context.Context, jobID, userID uuid.UUID) (*match.Result, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE job_id = $1 AND user_id = $2`,
		jobID, userID,
	)

	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// Insert is race-safe: the (job_id, user_id) uniqueness constraint
// arbitrates duplicate enqueues, and the loser returns the winner's row.
func (r *PostgresMatchRepository) Insert(ctx context.Context, m match.Result) (match.Result, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	affected, err := r.db.Exec(ctx,
		`INSERT INTO matches (`+matchColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (job_id, user_id) DO NOTHING`,
		m.ID, m.JobID, m.UserID, m.MatchPercentage,
		m.MatchedSkills, m.MissingSkills, m.Summary, m.CreatedAt,
	)
	if err != nil {
		return match.Result{}, err
	}
	if affected == 0 {
		existing, err := r.FindByJobAndUser(ctx, m.JobID, m.UserID)
		if err != nil {
			return match.Result{}, err
		}
		if existing != nil {
			return *existing, nil
		}
	}
	return m, nil
}

func (r *PostgresMatchRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]match.Result, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]match.Result, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanMatch(row database.Row) (match.Result, error) {
	var m match.Result
	err := row.Scan(
		&m.ID, &m.JobID, &m.UserID, &m.MatchPercentage,
		&m.MatchedSkills, &m.MissingSkills, &m.Summary, &m.CreatedAt,
	)
	return m, err
}
