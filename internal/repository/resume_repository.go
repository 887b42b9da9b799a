package repository

import (
	"context"
	"database/sql"
	"errors"

	"talentmatch/internal/database"
	"talentmatch/internal/domain/resume"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

var ErrResumeNotFound = errors.New("resume not found")

type ResumeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (resume.Resume, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]resume.Resume, error)
	// FindGeneralByUser returns the user's general-purpose resume, the
	// one uploaded without a target job. Oldest upload wins when the
	// user has several.
	FindGeneralByUser(ctx context.Context, userID uuid.UUID) (resume.Resume, error)
	UpdateScore(ctx context.Context, id uuid.UUID, pct int, matched, missing []string, summary string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status resume.Status) error
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
}

type PostgresResumeRepository struct {
	db database.DB
}

func NewPostgresResumeRepository(db database.DB) *PostgresResumeRepository {
	return &PostgresResumeRepository{db: db}
}

const resumeColumns = `id, user_id, job_id, file_url, parsed_text, embedding,
	match_percentage, matched_skills, missing_skills, summary, status, created_at`

func (r *PostgresResumeRepository) FindByID(ctx context.Context, id uuid.UUID) (resume.Resume, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE id = $1`, id)
	return scanResume(row)
}

func (r *PostgresResumeRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]resume.Resume, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+resumeColumns+` FROM resumes WHERE job_id = $1 ORDER BY created_at ASC`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]resume.Resume, 0)
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresResumeRepository) FindGeneralByUser(ctx context.Context, userID uuid.UUID) (resume.Resume, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+resumeColumns+` FROM resumes
		 WHERE user_id = $1 AND job_id IS NULL
		 ORDER BY created_at ASC
		 LIMIT 1`,
		userID,
	)
	return scanResume(row)
}

func (r *PostgresResumeRepository) UpdateScore(ctx context.Context, id uuid.UUID, pct int, matched, missing []string, summary string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE resumes
		 SET match_percentage = $2, matched_skills = $3, missing_skills = $4, summary = $5
		 WHERE id = $1`,
		id, pct, matched, missing, summary,
	)
	return err
}

func (r *PostgresResumeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status resume.Status) error {
	affected, err := r.db.Exec(ctx,
		`UPDATE resumes SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrResumeNotFound
	}
	return nil
}

func (r *PostgresResumeRepository) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	_, err := r.db.Exec(ctx,
		`UPDATE resumes SET embedding = $2 WHERE id = $1`,
		id, pgvector.NewVector(embedding),
	)
	return err
}

func scanResume(row database.Row) (resume.Resume, error) {
	var (
		res resume.Resume
		vec *pgvector.Vector
	)
	err := row.Scan(
		&res.ID, &res.UserID, &res.JobID, &res.FileURL, &res.ParsedText, &vec,
		&res.MatchPercentage, &res.MatchedSkills, &res.MissingSkills,
		&res.Summary, &res.Status, &res.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return resume.Resume{}, ErrResumeNotFound
		}
		return resume.Resume{}, err
	}
	if vec != nil {
		res.Embedding = vec.Slice()
	}
	return res, nil
}
