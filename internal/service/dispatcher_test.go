package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/quocanhngo/devicelink/internal/model"
	"github.com/quocanhngo/devicelink/internal/repository"
)

type recordingNotifier struct {
	mu        sync.Mutex
	connected bool
	events    []string
	completed *model.TaskResult
	failure   string
}

func (n *recordingNotifier) record(ev string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.connected
}

func (n *recordingNotifier) NotifyTaskCompleted(_, _ string, result *model.TaskResult) bool {
	n.mu.Lock()
	n.completed = result
	n.mu.Unlock()
	return n.record(model.WSTypeTaskCompleted)
}

func (n *recordingNotifier) NotifyTaskFailed(_, _, errMsg string) bool {
	n.mu.Lock()
	n.failure = errMsg
	n.mu.Unlock()
	return n.record(model.WSTypeTaskFailed)
}

func (n *recordingNotifier) NotifyProgress(_, _ string, _ int, _ string) bool {
	return n.record(model.WSTypeProgressUpdate)
}

type recordingPush struct {
	mu     sync.Mutex
	tokens []string
}

func (p *recordingPush) SendPush(_ context.Context, token, _, _ string, _ map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = append(p.tokens, token)
	return nil
}

type memoryArtifacts struct {
	uploaded map[string][]byte
}

func (a *memoryArtifacts) UploadArtifact(_ context.Context, taskID string, data []byte, _ string) (string, error) {
	a.uploaded[taskID] = data
	return "http://minio/artifacts/" + taskID, nil
}

func newDispatcherFixture(gen Generator, notifier Notifier, opts DispatcherOptions) (*Dispatcher, *DeviceRegistry) {
	clk := newTestClock()
	registry := newTestRegistry(clk)
	opts.Now = clk.Now
	return NewDispatcher(registry, repository.NewMemoryTaskRepository(), gen, notifier, opts), registry
}

func TestDispatcherCompletesTask(t *testing.T) {
	notifier := &recordingNotifier{connected: true}
	gen := GeneratorFunc(func(_ context.Context, task model.Task, progress ProgressFunc) (*GenerationResult, error) {
		progress(50, "halfway")
		progress(150, "clamped")
		return &GenerationResult{Content: "hello " + task.Type}, nil
	})
	d, registry := newDispatcherFixture(gen, notifier, DispatcherOptions{})
	_, _ = registry.Register(pixel())

	task, err := d.AcceptCommand(context.Background(), model.CommandRequest{
		DeviceID: "p1", Type: "poem", Params: json.RawMessage(`{"topic":"sea"}`),
	})
	if err != nil {
		t.Fatalf("AcceptCommand: %v", err)
	}
	if task.Status != model.TaskStatusPending {
		t.Fatalf("expected pending, got %s", task.Status)
	}
	if !registry.IsOnline("p1") {
		t.Fatalf("accepted command must touch the registry")
	}

	d.Wait()

	got, err := d.GetTask(context.Background(), task.TaskID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != model.TaskStatusCompleted || got.Progress != 100 {
		t.Fatalf("unexpected task: %+v", got)
	}
	if got.Result == nil || got.Result.Content != "hello poem" {
		t.Fatalf("unexpected result: %+v", got.Result)
	}

	want := []string{model.WSTypeProgressUpdate, model.WSTypeProgressUpdate, model.WSTypeTaskCompleted}
	if len(notifier.events) != len(want) {
		t.Fatalf("expected events %v, got %v", want, notifier.events)
	}
	for i := range want {
		if notifier.events[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, notifier.events)
		}
	}
}

func TestDispatcherFailedTaskFallsBackToPush(t *testing.T) {
	notifier := &recordingNotifier{connected: false}
	push := &recordingPush{}
	gen := GeneratorFunc(func(context.Context, model.Task, ProgressFunc) (*GenerationResult, error) {
		return nil, errors.New("model overloaded")
	})
	d, registry := newDispatcherFixture(gen, notifier, DispatcherOptions{Push: push})

	req := pixel()
	req.PushToken = "fcm-token"
	_, _ = registry.Register(req)

	task, err := d.AcceptCommand(context.Background(), model.CommandRequest{DeviceID: "p1", Type: "image"})
	if err != nil {
		t.Fatalf("AcceptCommand: %v", err)
	}
	d.Wait()

	got, _ := d.GetTask(context.Background(), task.TaskID)
	if got.Status != model.TaskStatusFailed || got.Error != "model overloaded" {
		t.Fatalf("unexpected task: %+v", got)
	}
	if notifier.failure != "model overloaded" {
		t.Fatalf("expected failure notification, got %q", notifier.failure)
	}
	if len(push.tokens) != 1 || push.tokens[0] != "fcm-token" {
		t.Fatalf("expected one push to fcm-token, got %v", push.tokens)
	}
}

func TestDispatcherUploadsArtifacts(t *testing.T) {
	notifier := &recordingNotifier{connected: true}
	artifacts := &memoryArtifacts{uploaded: map[string][]byte{}}
	gen := GeneratorFunc(func(context.Context, model.Task, ProgressFunc) (*GenerationResult, error) {
		return &GenerationResult{Artifact: []byte("png"), ContentType: "image/png"}, nil
	})
	d, registry := newDispatcherFixture(gen, notifier, DispatcherOptions{Artifacts: artifacts})
	_, _ = registry.Register(pixel())

	task, _ := d.AcceptCommand(context.Background(), model.CommandRequest{DeviceID: "p1", Type: "image"})
	d.Wait()

	if string(artifacts.uploaded[task.TaskID]) != "png" {
		t.Fatalf("artifact not uploaded")
	}
	if notifier.completed == nil || notifier.completed.ArtifactURL != "http://minio/artifacts/"+task.TaskID {
		t.Fatalf("unexpected completion: %+v", notifier.completed)
	}
}

func TestDispatcherRejectsUnknownOrDisabledDevice(t *testing.T) {
	d, registry := newDispatcherFixture(nil, &recordingNotifier{}, DispatcherOptions{})

	if _, err := d.AcceptCommand(context.Background(), model.CommandRequest{DeviceID: "ghost", Type: "x"}); !errors.Is(err, model.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}

	_, _ = registry.Register(pixel())
	_ = registry.Disable("p1")
	if _, err := d.AcceptCommand(context.Background(), model.CommandRequest{DeviceID: "p1", Type: "x"}); !errors.Is(err, model.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound for disabled device, got %v", err)
	}

	if _, err := d.AcceptCommand(context.Background(), model.CommandRequest{DeviceID: "p1"}); !errors.Is(err, model.ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}
