package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"catalog-service/models"

	"github.com/go-redis/redis/v8"
)

const (
	ImportQueueKey     = "catalog_import:queue"
	importJobKeyPrefix = "catalog_import:job:"
	// ImportJobTTL bounds how long finished job records stay queryable.
	ImportJobTTL = 24 * time.Hour
)

var (
	ErrJobNotFound      = errors.New("import job not found")
	ErrQueueUnavailable = errors.New("import queue is not configured")
)

// JobQueue stores queued import jobs and hands their IDs to the worker.
type JobQueue interface {
	Enqueue(ctx context.Context, rec *models.ImportJobRecord) error
	// Dequeue blocks up to timeout and returns "" when nothing arrived.
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)
	// Requeue puts a job back at the head of the queue.
	Requeue(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.ImportJobRecord, error)
	Save(ctx context.Context, rec *models.ImportJobRecord) error
}

// RedisJobQueue keeps job records as JSON strings and the queue as a Redis list.
type RedisJobQueue struct {
	rdb *redis.Client
}

func NewRedisJobQueue(rdb *redis.Client) *RedisJobQueue {
	return &RedisJobQueue{rdb: rdb}
}

func JobKey(id string) string {
	return importJobKeyPrefix + id
}

func (q *RedisJobQueue) Save(ctx context.Context, rec *models.ImportJobRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", rec.ID, err)
	}
	if err := q.rdb.Set(ctx, JobKey(rec.ID), b, ImportJobTTL).Err(); err != nil {
		return fmt.Errorf("save job %s: %w", rec.ID, err)
	}
	return nil
}

func (q *RedisJobQueue) Enqueue(ctx context.Context, rec *models.ImportJobRecord) error {
	if err := q.Save(ctx, rec); err != nil {
		return err
	}
	if err := q.rdb.RPush(ctx, ImportQueueKey, rec.ID).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", rec.ID, err)
	}
	return nil
}

func (q *RedisJobQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	res, err := q.rdb.BLPop(ctx, timeout, ImportQueueKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

func (q *RedisJobQueue) Requeue(ctx context.Context, id string) error {
	return q.rdb.LPush(ctx, ImportQueueKey, id).Err()
}

func (q *RedisJobQueue) Get(ctx context.Context, id string) (*models.ImportJobRecord, error) {
	val, err := q.rdb.Get(ctx, JobKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read job %s: %w", id, err)
	}
	var rec models.ImportJobRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("parse job %s: %w", id, err)
	}
	return &rec, nil
}
