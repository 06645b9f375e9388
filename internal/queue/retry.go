package queue

import (
	"math"
	"math/rand"
	"time"

	"github.com/go-co-op/gocron"
)

// calculateBackoff calculates the backoff duration for a retry.
// Exponential with jitter, base 5 seconds, capped at 1 hour.
func calculateBackoff(retry int) time.Duration {
	base := 5.0
	max := 3600.0

	seconds := math.Min(max, base*math.Pow(2, float64(retry)))

	// ±20% jitter
	jitter := seconds * 0.2
	seconds = seconds - jitter + (rand.Float64() * jitter * 2)

	return time.Duration(seconds) * time.Second
}

// StartRetryScheduler begins the periodic sweep that releases delayed jobs
// whose backoff has elapsed. Call Stop on the returned scheduler on shutdown.
func (q *Queue) StartRetryScheduler() *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.Every(30).Seconds().Do(func() {
		if err := q.releaseDelayedJobs(); err != nil {
			q.log.WithError(err).Error("error releasing delayed jobs")
		}
	})
	scheduler.StartAsync()
	return scheduler
}

// releaseDelayedJobs moves due delayed jobs back to pending
func (q *Queue) releaseDelayedJobs() error {
	return q.db.Model(&Job{}).
		Where("status = ? AND next_retry <= ?", JobStatusDelayed, time.Now()).
		Update("status", JobStatusPending).Error
}
