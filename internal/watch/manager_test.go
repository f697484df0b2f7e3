package watch_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"plenum/internal/api"
	"plenum/internal/config"
	"plenum/internal/watch"
)

// fakeBackend serves snapshots from memory and exposes a pipe as the delta
// stream so tests can push SSE frames.
type fakeBackend struct {
	mu       sync.Mutex
	snapshot []api.Channel
	pollErr  error

	streamMu sync.Mutex
	writer   *io.PipeWriter
}

func (f *fakeBackend) ChannelStatus(context.Context) ([]api.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	out := make([]api.Channel, len(f.snapshot))
	copy(out, f.snapshot)
	return out, nil
}

func (f *fakeBackend) StatusStream(ctx context.Context) (io.ReadCloser, error) {
	reader, writer := io.Pipe()
	f.streamMu.Lock()
	f.writer = writer
	f.streamMu.Unlock()
	go func() {
		<-ctx.Done()
		_ = writer.Close()
	}()
	return reader, nil
}

func (f *fakeBackend) setSnapshot(channels ...api.Channel) {
	f.mu.Lock()
	f.snapshot = channels
	f.mu.Unlock()
}

func (f *fakeBackend) setPollError(err error) {
	f.mu.Lock()
	f.pollErr = err
	f.mu.Unlock()
}

func (f *fakeBackend) pushDelta(t *testing.T, payload string) {
	t.Helper()
	f.streamMu.Lock()
	writer := f.writer
	f.streamMu.Unlock()
	if writer == nil {
		t.Fatal("delta stream not connected")
	}
	if _, err := fmt.Fprintf(writer, "data: %s\n\n", payload); err != nil {
		t.Fatalf("push delta: %v", err)
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Watch.PollInterval = 20
	cfg.Watch.StreamRetryDelay = 20
	return &cfg
}

func startManager(t *testing.T, cfg *config.Config, backend *fakeBackend) *watch.Manager {
	t.Helper()
	manager, err := watch.NewManager(cfg, backend, nil, nil)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	t.Cleanup(manager.Stop)
	return manager
}

func waitFor(t *testing.T, condition func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(message)
}

func TestManagerReconcilesSnapshotAndDelta(t *testing.T) {
	backend := &fakeBackend{}
	backend.setSnapshot(
		api.Channel{Code: "na01", Name: "Main Chamber", LiveStatus: api.StatusPreBroadcast},
		api.Channel{Code: "na02", Name: "Budget Committee", LiveStatus: api.StatusNoLiveChannel},
	)

	manager, err := watch.NewManager(testConfig(t), backend, nil, nil)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	var batchMu sync.Mutex
	var batches [][]api.StatusChange
	manager.OnChange(func(changes []api.StatusChange) {
		batchMu.Lock()
		batches = append(batches, changes)
		batchMu.Unlock()
	})

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer manager.Stop()

	waitFor(t, func() bool { return len(manager.Channels()) == 2 }, "snapshot never applied")

	// First observation must not have produced a change batch.
	batchMu.Lock()
	initial := len(batches)
	batchMu.Unlock()
	if initial != 0 {
		t.Fatalf("first snapshot emitted %d change batches", initial)
	}

	// A delta flips na01 on-air; the name is omitted as deltas do.
	waitFor(t, func() bool {
		backend.streamMu.Lock()
		connected := backend.writer != nil
		backend.streamMu.Unlock()
		return connected
	}, "delta stream never connected")
	backend.setSnapshot(
		api.Channel{Code: "na01", Name: "Main Chamber", LiveStatus: api.StatusOnAir, StatusText: "plenary"},
		api.Channel{Code: "na02", Name: "Budget Committee", LiveStatus: api.StatusNoLiveChannel},
	)
	backend.pushDelta(t, `{"channels":[{"code":"na01","livestatus":1,"status_text":"plenary"}],"changes":[]}`)

	waitFor(t, func() bool {
		batchMu.Lock()
		defer batchMu.Unlock()
		return len(batches) >= 1
	}, "delta change batch never delivered")

	batchMu.Lock()
	first := batches[0]
	batchMu.Unlock()
	if len(first) != 1 || first[0].Code != "na01" || first[0].NewStatus != api.StatusOnAir {
		t.Fatalf("unexpected change batch: %+v", first)
	}

	// The delta omitted the display name; the baseline keeps it.
	channels := manager.Channels()
	if channels[0].Code != "na01" || channels[0].Name != "Main Chamber" {
		t.Fatalf("delta patch lost channel name: %+v", channels[0])
	}
	if channels[0].StatusText != "plenary" {
		t.Fatalf("delta status text not applied: %+v", channels[0])
	}
}

func TestManagerChangeOnlyDeltaPatchesFieldLevel(t *testing.T) {
	backend := &fakeBackend{}
	backend.setSnapshot(api.Channel{
		Code:       "na01",
		Name:       "Main Chamber",
		LiveStatus: api.StatusPreBroadcast,
		StatusText: "waiting",
		STTRunning: true,
	})

	cfg := testConfig(t)
	// No further polls; the delta must carry the update alone.
	cfg.Watch.PollInterval = 3_600_000

	manager, err := watch.NewManager(cfg, backend, nil, nil)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}

	var batchMu sync.Mutex
	var batches [][]api.StatusChange
	manager.OnChange(func(changes []api.StatusChange) {
		batchMu.Lock()
		batches = append(batches, changes)
		batchMu.Unlock()
	})

	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer manager.Stop()

	waitFor(t, func() bool { return len(manager.Channels()) == 1 }, "snapshot never applied")
	waitFor(t, func() bool {
		backend.streamMu.Lock()
		connected := backend.writer != nil
		backend.streamMu.Unlock()
		return connected
	}, "delta stream never connected")

	backend.pushDelta(t, `{"channels":[],"changes":[{"code":"na01","old_status":0,"new_status":1,"new_text":"plenary"}]}`)

	waitFor(t, func() bool {
		batchMu.Lock()
		defer batchMu.Unlock()
		return len(batches) >= 1
	}, "change-only delta never applied")

	channels := manager.Channels()
	got := channels[0]
	if got.LiveStatus != api.StatusOnAir || got.StatusText != "plenary" {
		t.Fatalf("delta status not applied: %+v", got)
	}
	// Fields a change record cannot carry must survive the patch.
	if got.Name != "Main Chamber" {
		t.Fatalf("channel name lost on change-only delta: %+v", got)
	}
	if !got.STTRunning {
		t.Fatalf("stt flag reset by change-only delta: %+v", got)
	}
}

func TestManagerKeepsStateThroughPollFailures(t *testing.T) {
	backend := &fakeBackend{}
	backend.setSnapshot(api.Channel{Code: "na01", Name: "Main Chamber", LiveStatus: api.StatusOnAir})

	manager := startManager(t, testConfig(t), backend)
	waitFor(t, func() bool { return len(manager.Channels()) == 1 }, "snapshot never applied")

	pollErr := errors.New("backend down")
	backend.setPollError(pollErr)
	waitFor(t, func() bool { return manager.LastError() != nil }, "poll error never surfaced")

	// Stale-but-present beats blank: the channel list survives the outage.
	if got := len(manager.Channels()); got != 1 {
		t.Fatalf("channel state cleared by poll failure: %d", got)
	}

	backend.setPollError(nil)
	waitFor(t, func() bool { return manager.LastError() == nil }, "recovery never cleared error")
}

func TestManagerLockExcludesSecondWatcher(t *testing.T) {
	backend := &fakeBackend{}
	cfg := testConfig(t)

	startManager(t, cfg, backend)

	second, err := watch.NewManager(cfg, backend, nil, nil)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second watcher acquired the lock")
	}
}

func TestManagerStopIsIdempotent(t *testing.T) {
	backend := &fakeBackend{}
	manager := startManager(t, testConfig(t), backend)
	manager.Stop()
	manager.Stop()
}

func TestManagerRefreshPollsImmediately(t *testing.T) {
	backend := &fakeBackend{}
	cfg := testConfig(t)
	cfg.Watch.PollInterval = 3_600_000

	manager := startManager(t, cfg, backend)
	waitFor(t, func() bool { return manager.LastError() == nil }, "initial poll never ran")

	backend.setSnapshot(api.Channel{Code: "na05", Name: "Hearing Room", LiveStatus: api.StatusRecess})
	manager.Refresh()
	waitFor(t, func() bool { return len(manager.Channels()) == 1 }, "refresh never polled")
}
