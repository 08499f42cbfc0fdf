package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storepay-backend/pkg/logger"
)

const (
	defaultOutboxRetentionDays       = 30
	defaultNotificationRetentionDays = 90
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPruner interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

type notificationPruner interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// retentionJob deletes rows older than a rolling cutoff.
type retentionJob struct {
	name  string
	logg  *logger.Logger
	days  int
	prune func(ctx context.Context, cutoff time.Time) (int64, error)
	now   func() time.Time
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.days)
	deleted, err := j.prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	}), "cron.retention_complete")
	return nil
}

// NewOutboxRetentionJob prunes published outbox rows. Unpublished rows are
// left for the publisher and the DLQ flow.
func NewOutboxRetentionJob(logg *logger.Logger, db txRunner, repo outboxPruner, days int) (Job, error) {
	if logg == nil || db == nil || repo == nil {
		return nil, errors.New("outbox retention job requires logger, db and repository")
	}
	if days <= 0 {
		days = defaultOutboxRetentionDays
	}
	return &retentionJob{
		name: "outbox-retention",
		logg: logg,
		days: days,
		now:  time.Now,
		prune: func(ctx context.Context, cutoff time.Time) (int64, error) {
			var deleted int64
			err := db.WithTx(ctx, func(tx *gorm.DB) error {
				rows, err := repo.DeletePublishedBefore(tx, cutoff)
				deleted = rows
				return err
			})
			return deleted, err
		},
	}, nil
}

// NewNotificationCleanupJob prunes read notifications. Unread ones are kept
// regardless of age.
func NewNotificationCleanupJob(logg *logger.Logger, repo notificationPruner, days int) (Job, error) {
	if logg == nil || repo == nil {
		return nil, errors.New("notification cleanup job requires logger and repository")
	}
	if days <= 0 {
		days = defaultNotificationRetentionDays
	}
	return &retentionJob{
		name:  "notification-cleanup",
		logg:  logg,
		days:  days,
		now:   time.Now,
		prune: repo.DeleteReadBefore,
	}, nil
}
