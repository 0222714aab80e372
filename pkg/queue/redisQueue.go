package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries   = 3
	defaultBaseDelay    = 5 * time.Second
	defaultQueueTimeout = 5 * time.Second
	defaultPollInterval = time.Second
)

// RedisQueueConfig contains configuration for RedisQueue
type RedisQueueConfig struct {
	// Key prefix; queues live under <prefix>:tasks*
	Prefix string

	MaxRetries    int
	BaseDelay     time.Duration
	QueueTimeout  time.Duration
	PollInterval  time.Duration
	EnableMetrics bool
}

// DefaultRedisQueueConfig returns default configuration
func DefaultRedisQueueConfig() *RedisQueueConfig {
	return &RedisQueueConfig{
		Prefix:        "elivra",
		MaxRetries:    defaultMaxRetries,
		BaseDelay:     defaultBaseDelay,
		QueueTimeout:  defaultQueueTimeout,
		PollInterval:  defaultPollInterval,
		EnableMetrics: true,
	}
}

// RedisQueue implements Queue on a list (ready tasks), a sorted set
// (delayed tasks) and a processing list.
type RedisQueue struct {
	client          *redis.Client
	mainQueue       string
	delayedQueue    string
	processingQueue string
	metricsPrefix   string
	retryManager    *RetryManager
	dlqHandler      DLQHandler
	config          *RedisQueueConfig
	stopChan        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// NewRedisQueue creates a new RedisQueue instance
func NewRedisQueue(client *redis.Client, cfg *RedisQueueConfig, retryManager *RetryManager, dlqHandler DLQHandler) *RedisQueue {
	if cfg == nil {
		cfg = DefaultRedisQueueConfig()
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = defaultQueueTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if retryManager == nil {
		retryManager = NewRetryManager(cfg.MaxRetries, cfg.BaseDelay)
	}
	if dlqHandler == nil {
		dlqHandler = NewDefaultDLQHandler(client, DLQKey(cfg.Prefix))
	}

	q := &RedisQueue{
		client:          client,
		mainQueue:       cfg.Prefix + ":tasks",
		delayedQueue:    cfg.Prefix + ":tasks:delayed",
		processingQueue: cfg.Prefix + ":tasks:processing",
		metricsPrefix:   cfg.Prefix + ":metrics:",
		retryManager:    retryManager,
		dlqHandler:      dlqHandler,
		config:          cfg,
		stopChan:        make(chan struct{}),
	}

	logrus.WithFields(logrus.Fields{
		"main":    q.mainQueue,
		"delayed": q.delayedQueue,
	}).Info("RedisQueue initialized")

	return q
}

// DLQKey is the dead letter sorted set for a prefix.
func DLQKey(prefix string) string {
	return prefix + ":dlq"
}

// Publish sends a task to the queue
func (r *RedisQueue) Publish(ctx context.Context, task *Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	r.applyDefaults(task)
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	return r.enqueue(ctx, task)
}

func (r *RedisQueue) enqueue(ctx context.Context, task *Task) error {
	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if task.ExecuteAt.After(time.Now()) {
		err = r.client.ZAdd(ctx, r.delayedQueue, redis.Z{
			Score:  float64(task.ExecuteAt.UnixNano()) / 1e9,
			Member: taskData,
		}).Err()
		if err != nil {
			return fmt.Errorf("failed to publish delayed task: %w", err)
		}
		r.incrementMetric(ctx, "tasks_delayed")
		return nil
	}

	if err := r.client.LPush(ctx, r.mainQueue, taskData).Err(); err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}
	r.incrementMetric(ctx, "tasks_queued")
	return nil
}

// Subscribe starts consuming tasks until ctx is done or Close is called.
func (r *RedisQueue) Subscribe(ctx context.Context, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	r.wg.Add(2)
	go r.processDelayedTasks(ctx)
	go r.processMainQueue(ctx, handler)

	logrus.Info("RedisQueue subscriber started")
	return nil
}

func (r *RedisQueue) processMainQueue(ctx context.Context, handler Handler) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		default:
		}

		if _, err := r.processNext(ctx, handler); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Error("Error processing queue")
			time.Sleep(time.Second)
		}
	}
}

// processNext handles at most one ready task. It reports whether a task
// was taken.
func (r *RedisQueue) processNext(ctx context.Context, handler Handler) (bool, error) {
	taskData, err := r.client.BLMove(ctx, r.mainQueue, r.processingQueue, "RIGHT", "LEFT", r.config.QueueTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to move task to processing queue: %w", err)
	}

	defer func() {
		if err := r.client.LRem(ctx, r.processingQueue, 1, taskData).Err(); err != nil {
			logrus.WithError(err).Warn("Failed to remove task from processing queue")
		}
	}()

	var task Task
	if err := json.Unmarshal([]byte(taskData), &task); err != nil {
		corrupted := &Task{
			ID:        "corrupted_" + strconv.FormatInt(time.Now().UnixNano(), 10),
			Type:      "corrupted",
			Data:      map[string]interface{}{"raw_data": taskData},
			CreatedAt: time.Now().UTC(),
		}
		r.dlqHandler.HandleFailedTask(ctx, corrupted, fmt.Errorf("invalid task format: %w", err))
		return true, nil
	}

	task.Attempts++
	start := time.Now()
	handlerErr := handler(ctx, &task)
	if handlerErr == nil {
		r.incrementMetric(ctx, "tasks_success")
		logrus.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"type":     task.Type,
			"duration": time.Since(start),
		}).Debug("Task completed")
		return true, nil
	}

	r.incrementMetric(ctx, "tasks_failure")
	task.LastError = handlerErr.Error()

	retry, delay := r.retryManager.ShouldRetry(&task, handlerErr)
	if !retry {
		r.dlqHandler.HandleFailedTask(ctx, &task, handlerErr)
		return true, nil
	}

	task.ExecuteAt = time.Now().Add(delay)
	if err := r.enqueue(ctx, &task); err != nil {
		r.dlqHandler.HandleFailedTask(ctx, &task, fmt.Errorf("reschedule: %w", err))
		return true, nil
	}

	logrus.WithFields(logrus.Fields{
		"task_id": task.ID,
		"attempt": task.Attempts,
		"max":     task.MaxRetries,
		"delay":   delay,
		"error":   handlerErr.Error(),
	}).Warn("Task failed, retry scheduled")

	return true, nil
}

func (r *RedisQueue) processDelayedTasks(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			if _, err := r.moveReadyDelayedTasks(ctx); err != nil && ctx.Err() == nil {
				logrus.WithError(err).Error("Failed to process delayed tasks")
			}
		}
	}
}

// moveReadyDelayedTasks promotes due delayed tasks to the main queue.
func (r *RedisQueue) moveReadyDelayedTasks(ctx context.Context) (int, error) {
	now := float64(time.Now().UnixNano()) / 1e9

	tasks, err := r.client.ZRangeByScore(ctx, r.delayedQueue, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatFloat(now, 'f', -1, 64),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get delayed tasks: %w", err)
	}

	moved := 0
	for _, taskData := range tasks {
		// ZRem first so two pollers never promote the same member
		removed, err := r.client.ZRem(ctx, r.delayedQueue, taskData).Result()
		if err != nil {
			return moved, fmt.Errorf("failed to claim delayed task: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := r.client.LPush(ctx, r.mainQueue, taskData).Err(); err != nil {
			return moved, fmt.Errorf("failed to move delayed task: %w", err)
		}
		moved++
	}

	return moved, nil
}

func (r *RedisQueue) applyDefaults(task *Task) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = r.config.MaxRetries
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}
	if task.ExecuteAt.IsZero() {
		task.ExecuteAt = task.CreatedAt
	}
}

func (r *RedisQueue) incrementMetric(ctx context.Context, metric string) {
	if !r.config.EnableMetrics {
		return
	}

	key := r.metricsPrefix + metric
	pipe := r.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(err).Debug("Failed to record queue metric")
	}
}

// QueueStats contains statistics about queue state
type QueueStats struct {
	MainQueue       int64     `json:"main_queue"`
	DelayedQueue    int64     `json:"delayed_queue"`
	ProcessingQueue int64     `json:"processing_queue"`
	Timestamp       time.Time `json:"timestamp"`
}

// GetQueueStats returns current queue statistics
func (r *RedisQueue) GetQueueStats(ctx context.Context) (*QueueStats, error) {
	pipe := r.client.Pipeline()
	mainLen := pipe.LLen(ctx, r.mainQueue)
	delayedLen := pipe.ZCard(ctx, r.delayedQueue)
	processingLen := pipe.LLen(ctx, r.processingQueue)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	return &QueueStats{
		MainQueue:       mainLen.Val(),
		DelayedQueue:    delayedLen.Val(),
		ProcessingQueue: processingLen.Val(),
		Timestamp:       time.Now().UTC(),
	}, nil
}

// DLQ exposes the dead letter handler.
func (r *RedisQueue) DLQ() DLQHandler {
	return r.dlqHandler
}

// Close stops the consumers. The redis client is owned by the caller.
func (r *RedisQueue) Close() error {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
	logrus.Info("RedisQueue closed")
	return nil
}
