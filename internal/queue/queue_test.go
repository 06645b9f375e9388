package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupQueue(t *testing.T) (*Queue, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&Job{}))

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return NewQueue(db, log), db
}

func TestEnqueue(t *testing.T) {
	q, db := setupQueue(t)

	payload := map[string]string{"claim_id": "abc"}
	id, err := q.Enqueue(JobTypeSendClaimNotification, payload)
	require.NoError(t, err)

	var job Job
	require.NoError(t, db.First(&job, "id = ?", id).Error)
	assert.Equal(t, JobTypeSendClaimNotification, job.Type)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 3, job.MaxRetries)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(job.Payload, &decoded))
	assert.Equal(t, "abc", decoded["claim_id"])
}

func TestEnqueueTxRollsBackWithTransaction(t *testing.T) {
	q, db := setupQueue(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := q.EnqueueTx(tx, JobTypeSendClaimNotification, map[string]string{}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var count int64
	db.Model(&Job{}).Count(&count)
	assert.Zero(t, count)
}

func TestProcessNextSuccess(t *testing.T) {
	q, db := setupQueue(t)

	var handled int
	q.RegisterHandler(JobTypeSendClaimNotification, func(ctx context.Context, job Job) error {
		handled++
		return nil
	})

	id, err := q.Enqueue(JobTypeSendClaimNotification, map[string]string{})
	require.NoError(t, err)

	processed, err := q.processNext(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, 1, handled)

	var job Job
	require.NoError(t, db.First(&job, "id = ?", id).Error)
	assert.Equal(t, JobStatusCompleted, job.Status)

	// Nothing left to do
	processed, err = q.processNext(context.Background())
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestProcessNextRetriesWithBackoff(t *testing.T) {
	q, db := setupQueue(t)

	q.RegisterHandler(JobTypeSendClaimNotification, func(ctx context.Context, job Job) error {
		return errors.New("smtp unavailable")
	})

	id, err := q.Enqueue(JobTypeSendClaimNotification, map[string]string{})
	require.NoError(t, err)

	processed, err := q.processNext(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	var job Job
	require.NoError(t, db.First(&job, "id = ?", id).Error)
	assert.Equal(t, JobStatusDelayed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, "smtp unavailable", job.LastError)
	require.NotNil(t, job.NextRetry)
	assert.True(t, job.NextRetry.After(time.Now()))
}

func TestProcessNextFailsAfterMaxRetries(t *testing.T) {
	q, db := setupQueue(t)

	q.RegisterHandler(JobTypeSendClaimNotification, func(ctx context.Context, job Job) error {
		return errors.New("smtp unavailable")
	})

	id, err := q.Enqueue(JobTypeSendClaimNotification, map[string]string{})
	require.NoError(t, err)

	// Exhaust the retry budget by releasing the job after each failure
	for i := 0; i < 4; i++ {
		require.NoError(t, db.Model(&Job{}).Where("id = ?", id).Update("status", JobStatusPending).Error)
		processed, err := q.processNext(context.Background())
		require.NoError(t, err)
		require.True(t, processed)
	}

	var job Job
	require.NoError(t, db.First(&job, "id = ?", id).Error)
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 3, job.RetryCount)
}

func TestProcessNextNoHandler(t *testing.T) {
	q, db := setupQueue(t)

	id, err := q.Enqueue(JobTypeSendClaimNotification, map[string]string{})
	require.NoError(t, err)

	processed, err := q.processNext(context.Background())
	require.NoError(t, err)
	assert.True(t, processed)

	var job Job
	require.NoError(t, db.First(&job, "id = ?", id).Error)
	assert.Equal(t, JobStatusFailed, job.Status)
}

func TestReleaseDelayedJobs(t *testing.T) {
	q, db := setupQueue(t)

	due := time.Now().Add(-time.Minute)
	later := time.Now().Add(time.Hour)
	dueJob := Job{Type: JobTypeSendClaimNotification, Status: JobStatusDelayed, NextRetry: &due}
	futureJob := Job{Type: JobTypeSendClaimNotification, Status: JobStatusDelayed, NextRetry: &later}
	require.NoError(t, db.Create(&dueJob).Error)
	require.NoError(t, db.Create(&futureJob).Error)

	require.NoError(t, q.releaseDelayedJobs())

	var released Job
	require.NoError(t, db.First(&released, "id = ?", dueJob.ID).Error)
	assert.Equal(t, JobStatusPending, released.Status)

	var stillDelayed Job
	require.NoError(t, db.First(&stillDelayed, "id = ?", futureJob.ID).Error)
	assert.Equal(t, JobStatusDelayed, stillDelayed.Status)
}

func TestCalculateBackoff(t *testing.T) {
	for retry := 0; retry < 12; retry++ {
		backoff := calculateBackoff(retry)
		assert.Greater(t, backoff, time.Duration(0), "retry %d", retry)
		// Capped at an hour plus the 20% jitter band
		assert.LessOrEqual(t, backoff, 4320*time.Second, "retry %d", retry)
	}

	// Early retries stay short
	assert.LessOrEqual(t, calculateBackoff(0), 7*time.Second)
}

func TestCalculateBackoffGrows(t *testing.T) {
	// Jitter aside, the fifth retry is always longer than the first
	assert.Greater(t, calculateBackoff(5), calculateBackoff(0))
}
