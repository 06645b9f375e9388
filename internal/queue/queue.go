package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// JobType defines the type of job
type JobType string

// Job types
const (
	JobTypeSendClaimNotification JobType = "send_claim_notification"
)

// JobStatus defines the status of a job
type JobStatus string

// Job statuses
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDelayed    JobStatus = "delayed"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a background job. Jobs written in the same transaction as a
// state change act as a transactional outbox: the side effect is recorded
// atomically with the change and delivered by the worker afterwards.
type Job struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Type       JobType         `json:"type" gorm:"index"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status" gorm:"index;default:pending"`
	RetryCount int             `json:"retry_count" gorm:"default:0"`
	MaxRetries int             `json:"max_retries" gorm:"default:3"`
	NextRetry  *time.Time      `json:"next_retry,omitempty"`
	LastError  string          `json:"last_error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// BeforeCreate assigns an id when one is not set
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// JobHandler processes a single job
type JobHandler func(ctx context.Context, job Job) error

// Queue is a database-backed job queue
type Queue struct {
	db       *gorm.DB
	log      *logrus.Logger
	handlers map[JobType]JobHandler
	quit     chan struct{}
}

// NewQueue creates a new queue
func NewQueue(db *gorm.DB, log *logrus.Logger) *Queue {
	return &Queue{
		db:       db,
		log:      log,
		handlers: make(map[JobType]JobHandler),
		quit:     make(chan struct{}),
	}
}

// RegisterHandler registers a handler for a job type
func (q *Queue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.handlers[jobType] = handler
}

// Enqueue adds a job to the queue
func (q *Queue) Enqueue(jobType JobType, payload interface{}) (uuid.UUID, error) {
	return q.EnqueueTx(q.db, jobType, payload)
}

// EnqueueTx adds a job to the queue within an existing transaction. Callers
// enqueuing side effects of a state change must use the same transaction so
// the job commits or rolls back with the change.
func (q *Queue) EnqueueTx(tx *gorm.DB, jobType JobType, payload interface{}) (uuid.UUID, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := Job{
		Type:    jobType,
		Payload: payloadBytes,
		Status:  JobStatusPending,
	}

	if err := tx.Create(&job).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	return job.ID, nil
}

// ProcessJobs polls for pending jobs until Stop is called
func (q *Queue) ProcessJobs() {
	q.log.Info("job queue worker started")
	for {
		select {
		case <-q.quit:
			q.log.Info("job queue worker stopped")
			return
		default:
			processed, err := q.processNext(context.Background())
			if err != nil {
				q.log.WithError(err).Error("error processing job")
			}
			if !processed {
				time.Sleep(time.Second)
			}
		}
	}
}

// Stop stops the worker loop
func (q *Queue) Stop() {
	close(q.quit)
}

// processNext claims and runs the oldest pending job. It returns false when
// no job was available.
func (q *Queue) processNext(ctx context.Context) (bool, error) {
	var job Job
	err := q.db.
		Where("status = ?", JobStatusPending).
		Order("created_at ASC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	// Claim the job. The status guard keeps two workers from picking the
	// same row.
	res := q.db.Model(&Job{}).
		Where("id = ? AND status = ?", job.ID, JobStatusPending).
		Update("status", JobStatusProcessing)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	handler, ok := q.handlers[job.Type]
	if !ok {
		q.log.WithField("job_type", job.Type).Error("no handler registered for job type")
		return true, q.markFailed(&job, fmt.Errorf("no handler for job type %s", job.Type))
	}

	if err := handler(ctx, job); err != nil {
		q.log.WithFields(logrus.Fields{
			"job_id":   job.ID,
			"job_type": job.Type,
			"retries":  job.RetryCount,
		}).WithError(err).Warn("job failed")
		return true, q.retryOrFail(&job, err)
	}

	return true, q.db.Model(&Job{}).
		Where("id = ?", job.ID).
		Update("status", JobStatusCompleted).Error
}

// retryOrFail schedules another attempt with backoff, or marks the job
// failed once retries are exhausted.
func (q *Queue) retryOrFail(job *Job, cause error) error {
	if job.RetryCount >= job.MaxRetries {
		return q.markFailed(job, cause)
	}

	// Delayed jobs are released back to pending by the retry sweep once
	// their backoff elapses.
	nextRetry := time.Now().Add(calculateBackoff(job.RetryCount))
	return q.db.Model(&Job{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"status":      JobStatusDelayed,
		"retry_count": job.RetryCount + 1,
		"next_retry":  nextRetry,
		"last_error":  cause.Error(),
	}).Error
}

func (q *Queue) markFailed(job *Job, cause error) error {
	return q.db.Model(&Job{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
		"status":     JobStatusFailed,
		"last_error": cause.Error(),
	}).Error
}
