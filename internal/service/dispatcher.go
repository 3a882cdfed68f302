package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/devicelink/internal/model"
)

const generationTimeout = 10 * time.Minute

// ProgressFunc reports intermediate generation progress (0-100)
type ProgressFunc func(progress int, message string)

// GenerationResult is what a Generator produces for a task
type GenerationResult struct {
	Content     string
	Artifact    []byte // optional binary output, uploaded when storage is configured
	ContentType string
}

// Generator executes a command. Content generation itself lives elsewhere.
type Generator interface {
	Generate(ctx context.Context, task model.Task, progress ProgressFunc) (*GenerationResult, error)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, task model.Task, progress ProgressFunc) (*GenerationResult, error)

func (f GeneratorFunc) Generate(ctx context.Context, task model.Task, progress ProgressFunc) (*GenerationResult, error) {
	return f(ctx, task, progress)
}

// EchoGenerator returns the command params as content; used when no real
// generator is wired
var EchoGenerator = GeneratorFunc(func(_ context.Context, task model.Task, progress ProgressFunc) (*GenerationResult, error) {
	progress(100, "done")
	return &GenerationResult{Content: string(task.Params), ContentType: "application/json"}, nil
})

// TaskStore persists task state
type TaskStore interface {
	Save(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, taskID string) (*model.Task, error)
}

// Notifier pushes task events to a device's realtime channel
type Notifier interface {
	NotifyTaskCompleted(deviceID, taskID string, result *model.TaskResult) bool
	NotifyTaskFailed(deviceID, taskID, errMsg string) bool
	NotifyProgress(deviceID, taskID string, progress int, message string) bool
}

// ArtifactStore uploads generated binaries and returns a public URL
type ArtifactStore interface {
	UploadArtifact(ctx context.Context, taskID string, data []byte, contentType string) (string, error)
}

// PushSender delivers a push notification to a device token
type PushSender interface {
	SendPush(ctx context.Context, token, title, body string, data map[string]string) error
}

// DispatcherOptions carries the optional collaborators
type DispatcherOptions struct {
	Artifacts ArtifactStore
	Push      PushSender
	Now       func() time.Time
}

// Dispatcher accepts commands and runs them asynchronously
type Dispatcher struct {
	registry  *DeviceRegistry
	tasks     TaskStore
	generator Generator
	notifier  Notifier
	artifacts ArtifactStore
	push      PushSender
	now       func() time.Time

	wg sync.WaitGroup
}

func NewDispatcher(registry *DeviceRegistry, tasks TaskStore, generator Generator, notifier Notifier, opts DispatcherOptions) *Dispatcher {
	if generator == nil {
		generator = EchoGenerator
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		registry:  registry,
		tasks:     tasks,
		generator: generator,
		notifier:  notifier,
		artifacts: opts.Artifacts,
		push:      opts.Push,
		now:       now,
	}
}

// AcceptCommand stores a pending task for the device and starts it
func (d *Dispatcher) AcceptCommand(ctx context.Context, req model.CommandRequest) (*model.Task, error) {
	if req.Type == "" {
		return nil, fmt.Errorf("%w: command type is required", model.ErrMalformedPayload)
	}

	device, err := d.registry.Get(req.DeviceID)
	if err != nil {
		return nil, err
	}
	if device.IsDisabled() {
		return nil, model.ErrDeviceNotFound
	}
	d.registry.Touch(req.DeviceID)

	now := d.now()
	task := &model.Task{
		TaskID:    uuid.NewString(),
		DeviceID:  req.DeviceID,
		Type:      req.Type,
		Params:    req.Params,
		Status:    model.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.tasks.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}
	log.Printf("📥 Command accepted: task=%s device=%s type=%s", task.TaskID, task.DeviceID, task.Type)

	d.wg.Add(1)
	go func(t model.Task, pushToken string) {
		defer d.wg.Done()
		d.run(t, pushToken)
	}(*task, device.PushToken)

	return task, nil
}

// GetTask returns the current state of a task
func (d *Dispatcher) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	return d.tasks.FindByID(ctx, taskID)
}

// Wait blocks until every running task has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(task model.Task, pushToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), generationTimeout)
	defer cancel()

	task.Status = model.TaskStatusRunning
	d.save(ctx, &task)

	progress := func(p int, message string) {
		if p < 0 {
			p = 0
		}
		if p > 100 {
			p = 100
		}
		task.Progress = p
		d.save(ctx, &task)
		d.notifier.NotifyProgress(task.DeviceID, task.TaskID, p, message)
	}

	result, err := d.generator.Generate(ctx, task, progress)
	if err == nil && result == nil {
		err = errors.New("generator returned no result")
	}
	if err != nil {
		task.Status = model.TaskStatusFailed
		task.Error = err.Error()
		d.save(ctx, &task)
		log.Printf("❌ Task %s failed: %v", task.TaskID, err)

		if !d.notifier.NotifyTaskFailed(task.DeviceID, task.TaskID, task.Error) {
			d.pushFallback(ctx, pushToken, task, "Task failed", task.Error)
		}
		return
	}

	taskResult := &model.TaskResult{Content: result.Content, ContentType: result.ContentType}
	if len(result.Artifact) > 0 && d.artifacts != nil {
		url, err := d.artifacts.UploadArtifact(ctx, task.TaskID, result.Artifact, result.ContentType)
		if err != nil {
			log.Printf("⚠️  Failed to upload artifact for task %s: %v", task.TaskID, err)
		} else {
			taskResult.ArtifactURL = url
		}
	}

	task.Status = model.TaskStatusCompleted
	task.Progress = 100
	task.Result = taskResult
	d.save(ctx, &task)
	log.Printf("✅ Task %s completed", task.TaskID)

	if !d.notifier.NotifyTaskCompleted(task.DeviceID, task.TaskID, taskResult) {
		d.pushFallback(ctx, pushToken, task, "Task completed", "Your content is ready")
	}
}

func (d *Dispatcher) save(ctx context.Context, task *model.Task) {
	task.UpdatedAt = d.now()
	if err := d.tasks.Save(ctx, task); err != nil {
		log.Printf("⚠️  Failed to save task %s: %v", task.TaskID, err)
	}
}

// pushFallback is best-effort: a device without a token or without FCM simply misses it
func (d *Dispatcher) pushFallback(ctx context.Context, token string, task model.Task, title, body string) {
	if d.push == nil || token == "" {
		return
	}
	data := map[string]string{
		"task_id": task.TaskID,
		"status":  string(task.Status),
	}
	if err := d.push.SendPush(ctx, token, title, body, data); err != nil {
		log.Printf("⚠️  Push fallback failed for device %s: %v", task.DeviceID, err)
	}
}
