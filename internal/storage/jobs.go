package storage

import (
	"database/sql"
	"time"
)

// JobStatus is the lifecycle state of a queued chart-generation job.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusFailed   JobStatus = "failed"
)

// Job is a queued request to analyse one audio file at one difficulty
// and cache the resulting Chart. The queue carries exactly one kind of
// work, so unlike a general-purpose job table its columns name the
// request directly instead of boxing it in a JSON payload.
type Job struct {
	ID          int64
	AudioPath   string
	Difficulty  string
	Status      JobStatus
	CachePath   string
	NoteCount   int
	Error       string
	Attempts    int
	MaxAttempts int
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// EnqueueGeneration queues a chart-generation request for an audio
// file and difficulty.
func (d *DB) EnqueueGeneration(audioPath, difficulty string) (int64, error) {
	result, err := d.db.Exec(`
		INSERT INTO generation_jobs (audio_path, difficulty, status)
		VALUES (?, ?, ?)
	`, audioPath, difficulty, string(JobStatusPending))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ClaimNextGeneration atomically claims the oldest pending job, if
// any, marking it running and incrementing its attempt count.
func (d *DB) ClaimNextGeneration() (*Job, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT id, audio_path, difficulty, attempts, max_attempts, created_at
		FROM generation_jobs
		WHERE status = ? AND attempts < max_attempts
		ORDER BY created_at ASC
		LIMIT 1
	`, string(JobStatusPending))

	job := &Job{Status: JobStatusPending}
	var createdAt string
	if err := row.Scan(&job.ID, &job.AudioPath, &job.Difficulty, &job.Attempts, &job.MaxAttempts, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	job.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	now := time.Now()
	if _, err := tx.Exec(`
		UPDATE generation_jobs SET status = ?, started_at = ?, attempts = attempts + 1, updated_at = ?
		WHERE id = ?
	`, string(JobStatusRunning), now, now, job.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	job.Status = JobStatusRunning
	job.Attempts++
	job.StartedAt = &now
	return job, nil
}

// CompleteGeneration marks a job complete with its cache path and note
// count.
func (d *DB) CompleteGeneration(jobID int64, cachePath string, noteCount int) error {
	now := time.Now()
	_, err := d.db.Exec(`
		UPDATE generation_jobs SET status = ?, cache_path = ?, note_count = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`, string(JobStatusComplete), cachePath, noteCount, now, now, jobID)
	return err
}

// FailGeneration marks a job failed with an error message.
func (d *DB) FailGeneration(jobID int64, errMsg string) error {
	now := time.Now()
	_, err := d.db.Exec(`
		UPDATE generation_jobs SET status = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, string(JobStatusFailed), errMsg, now, jobID)
	return err
}

// RetryGeneration resets a failed or stalled job back to pending.
func (d *DB) RetryGeneration(jobID int64) error {
	now := time.Now()
	_, err := d.db.Exec(`
		UPDATE generation_jobs SET status = ?, updated_at = ?
		WHERE id = ? AND attempts < max_attempts
	`, string(JobStatusPending), now, jobID)
	return err
}

// PendingGenerationCount returns how many generation jobs are waiting
// to be claimed.
func (d *DB) PendingGenerationCount() (int, error) {
	var count int
	row := d.db.QueryRow(`SELECT COUNT(*) FROM generation_jobs WHERE status = ?`, string(JobStatusPending))
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ResetStalledGenerations resets jobs that have been running for
// longer than timeout, e.g. after a worker process crashed
// mid-generation.
func (d *DB) ResetStalledGenerations(timeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-timeout)
	result, err := d.db.Exec(`
		UPDATE generation_jobs SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE status = ? AND started_at < ? AND attempts < max_attempts
	`, string(JobStatusPending), string(JobStatusRunning), cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
