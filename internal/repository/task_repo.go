package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quocanhngo/devicelink/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	taskKeyPrefix = "devicelink:task:"
	taskTTL       = 24 * time.Hour
)

// RedisTaskRepository stores task state as JSON values that expire after a day
type RedisTaskRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisTaskRepository(rdb *redis.Client) *RedisTaskRepository {
	return &RedisTaskRepository{rdb: rdb, ttl: taskTTL}
}

// Save writes the task, refreshing its expiry
func (r *RedisTaskRepository) Save(ctx context.Context, task *model.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}
	return r.rdb.Set(ctx, taskKeyPrefix+task.TaskID, data, r.ttl).Err()
}

// FindByID loads a task by id
func (r *RedisTaskRepository) FindByID(ctx context.Context, taskID string) (*model.Task, error) {
	data, err := r.rdb.Get(ctx, taskKeyPrefix+taskID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrTaskNotFound
		}
		return nil, err
	}

	var task model.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &task, nil
}

// MemoryTaskRepository keeps tasks in process memory; used when Redis is off
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]model.Task
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{tasks: make(map[string]model.Task)}
}

func (r *MemoryTaskRepository) Save(_ context.Context, task *model.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.TaskID] = *task
	return nil
}

func (r *MemoryTaskRepository) FindByID(_ context.Context, taskID string) (*model.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[taskID]
	if !ok {
		return nil, model.ErrTaskNotFound
	}
	return &t, nil
}
