package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"talentmatch/internal/database"
	"talentmatch/internal/domain/job"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

var ErrJobNotFound = errors.New("job not found")

// JobListFilter narrows a listing query. Empty fields match everything.
type JobListFilter struct {
	Title    string
	Company  string
	Location string
	Limit    int
	Offset   int
}

type JobRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (job.Job, error)
	List(ctx context.Context, filter JobListFilter) ([]job.Job, error)
	// ListOpenWithEmbedding returns open jobs that already carry an
	// embedding, the candidate pool for recommendations.
	ListOpenWithEmbedding(ctx context.Context) ([]job.Job, error)
	MarkClosed(ctx context.Context, id uuid.UUID) error
}

type PostgresJobRepository struct {
	db database.DB
}

func NewPostgresJobRepository(db database.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

const jobColumns = `j.id, j.recruiter_id, j.title, j.company, j.location, j.description,
	j.max_applicants, j.is_closed, j.embedding, j.created_at,
	(SELECT COUNT(*) FROM resumes r WHERE r.job_id = j.id) AS submitted_count`

func (r *PostgresJobRepository) FindByID(ctx context.Context, id uuid.UUID) (job.Job, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs j WHERE j.id = $1`, id)
	return scanJob(row)
}

func (r *PostgresJobRepository) List(ctx context.Context, filter JobListFilter) ([]job.Job, error) {
	var (
		where []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, "%"+value+"%")
		where = append(where, fmt.Sprintf("%s ILIKE $%d", column, len(args)))
	}
	add("j.title", filter.Title)
	add("j.company", filter.Company)
	add("j.location", filter.Location)

	query := `SELECT ` + jobColumns + ` FROM jobs j`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY j.created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return r.queryJobs(ctx, query, args...)
}

func (r *PostgresJobRepository) ListOpenWithEmbedding(ctx context.Context) ([]job.Job, error) {
	return r.queryJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs j
		 WHERE j.is_closed = FALSE AND j.embedding IS NOT NULL
		 ORDER BY j.created_at DESC`,
	)
}

func (r *PostgresJobRepository) MarkClosed(ctx context.Context, id uuid.UUID) error {
	affected, err := r.db.Exec(ctx,
		`UPDATE jobs SET is_closed = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *PostgresJobRepository) queryJobs(ctx context.Context, query string, args ...any) ([]job.Job, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]job.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanJob(row database.Row) (job.Job, error) {
	var (
		j   job.Job
		vec *pgvector.Vector
	)
	err := row.Scan(
		&j.ID, &j.RecruiterID, &j.Title, &j.Company, &j.Location, &j.Description,
		&j.MaxApplicants, &j.IsClosed, &vec, &j.CreatedAt, &j.SubmittedCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return job.Job{}, ErrJobNotFound
		}
		return job.Job{}, err
	}
	if vec != nil {
		j.Embedding = vec.Slice()
	}
	return j, nil
}
