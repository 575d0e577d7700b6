package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xavierca1/ligue-attribution/internal/entity"
)

var ErrJobNotFound = errors.New("upload job não encontrado")

type AdsUploadJobRepository struct {
	DB *sql.DB
}

func NewAdsUploadJobRepository(db *sql.DB) *AdsUploadJobRepository {
	return &AdsUploadJobRepository{DB: db}
}


func (r *AdsUploadJobRepository) Create(ctx context.Context, job *entity.AdsUploadJob) error {
	query := `
		INSERT INTO ads_upload_jobs (
			id, conversion_id, email_hash, click_id, stage,
			status, attempts, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.DB.ExecContext(ctx, query,
		job.ID,
		job.ConversionID,
		job.EmailHash,
		nullString(job.ClickID),
		job.Stage,
		job.Status,
		job.Attempts,
		job.CreatedAt,
		job.UpdatedAt,
	)

	return err
}

func (r *AdsUploadJobRepository) FindByID(ctx context.Context, id string) (*entity.AdsUploadJob, error) {
	query := `
		SELECT id, conversion_id, email_hash, COALESCE(click_id, ''), stage,
		       status, attempts, COALESCE(last_error, ''), created_at, updated_at
		FROM ads_upload_jobs
		WHERE id = $1
	`

	job := &entity.AdsUploadJob{}
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.ConversionID, &job.EmailHash, &job.ClickID, &job.Stage,
		&job.Status, &job.Attempts, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	return job, nil
}

func (r *AdsUploadJobRepository) MarkUploaded(ctx context.Context, id string) error {
	query := `
		UPDATE ads_upload_jobs
		SET status = $1, last_error = NULL, updated_at = NOW()
		WHERE id = $2
	`

	_, err := r.DB.ExecContext(ctx, query, entity.JobStatusUploaded, id)
	return err
}

func (r *AdsUploadJobRepository) RegisterAttempt(ctx context.Context, id, lastError string) (int, error) {
	query := `
		UPDATE ads_upload_jobs
		SET attempts = attempts + 1, last_error = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING attempts
	`

	var attempts int
	err := r.DB.QueryRowContext(ctx, query, lastError, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrJobNotFound
	}

	return attempts, err
}

func (r *AdsUploadJobRepository) MarkFailed(ctx context.Context, id, lastError string) error {
	query := `
		UPDATE ads_upload_jobs
		SET status = $1, last_error = $2, updated_at = NOW()
		WHERE id = $3
	`

	_, err := r.DB.ExecContext(ctx, query, entity.JobStatusFailed, lastError, id)
	return err
}

func (r *AdsUploadJobRepository) Touch(ctx context.Context, id string) error {
	query := `UPDATE ads_upload_jobs SET updated_at = NOW() WHERE id = $1`

	_, err := r.DB.ExecContext(ctx, query, id)
	return err
}

// FindStalePending pega jobs PENDING sem movimento há mais de maxAge.
// Acontece quando a mensagem se perdeu no broker ou o processo
// reiniciou entre o INSERT e o publish.
func (r *AdsUploadJobRepository) FindStalePending(ctx context.Context, maxAge time.Duration, limit int) ([]*entity.AdsUploadJob, error) {
	query := `
		SELECT id, conversion_id, email_hash, COALESCE(click_id, ''), stage,
		       status, attempts, COALESCE(last_error, ''), created_at, updated_at
		FROM ads_upload_jobs
		WHERE status = $1 AND updated_at < NOW() - ($2 * INTERVAL '1 second')
		ORDER BY updated_at ASC
		LIMIT $3
	`

	rows, err := r.DB.QueryContext(ctx, query, entity.JobStatusPending, int(maxAge.Seconds()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*entity.AdsUploadJob
	for rows.Next() {
		job := &entity.AdsUploadJob{}
		if err := rows.Scan(
			&job.ID, &job.ConversionID, &job.EmailHash, &job.ClickID, &job.Stage,
			&job.Status, &job.Attempts, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}
