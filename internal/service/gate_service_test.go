package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatelog/internal/domain"
	"gatelog/internal/service"
)

type recordingNotifier struct {
	mu        sync.Mutex
	snapshots [][]domain.SensorEvent
}

func (n *recordingNotifier) NotifySnapshot(events []domain.SensorEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshots = append(n.snapshots, events)
}

func (n *recordingNotifier) all() [][]domain.SensorEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([][]domain.SensorEvent(nil), n.snapshots...)
}

var wib = domain.LocalZone(7)

func morning(minute int) time.Time {
	return time.Date(2024, 2, 10, 9, minute, 0, 0, wib)
}

func newGate(f *fixture, size int) (service.GateService, *recordingNotifier) {
	notifier := &recordingNotifier{}
	gate := service.NewGateService(service.GateConfig{
		SnapshotSize: size,
		Window:       service.AdmissionWindow{Location: wib, OpenHour: 6, CloseHour: 18},
		Logger:       f.logger,
	}, f.users, f.sensors, notifier)
	return gate, notifier
}

func TestGateService_ToggleAlternates(t *testing.T) {
	f := newFixture(t)
	budi := f.register(t, "budi", "11112222")
	sari := f.register(t, "sari", "33334444")
	gate, notifier := newGate(f, 50)
	ctx := context.Background()

	first, err := gate.Toggle(ctx, "11112222", morning(0))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, first.Event.Status)
	assert.Equal(t, budi.ID, first.Event.Owner.ID)
	assert.Equal(t, "Nama budi", first.Event.Owner.Fullname)

	second, err := gate.Toggle(ctx, " 33334444 ", morning(1))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, second.Event.Status)
	assert.Equal(t, sari.ID, second.Event.Owner.ID)

	third, err := gate.Toggle(ctx, "11112222", morning(2))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, third.Event.Status)

	require.Len(t, third.Snapshot, 3)
	assert.Equal(t, third.Event.ID, third.Snapshot[0].ID)
	assert.Equal(t, first.Event.ID, third.Snapshot[2].ID)

	snapshots := notifier.all()
	require.Len(t, snapshots, 3)
	assert.Equal(t, third.Snapshot, snapshots[2])
}

func TestGateService_AdmissionWindow(t *testing.T) {
	f := newFixture(t)
	f.register(t, "budi", "11112222")
	gate, notifier := newGate(f, 50)
	ctx := context.Background()

	cases := []struct {
		name    string
		at      time.Time
		allowed bool
	}{
		{"before opening", time.Date(2024, 2, 10, 5, 59, 59, 0, wib), false},
		{"at opening", time.Date(2024, 2, 10, 6, 0, 0, 0, wib), true},
		{"last minute", time.Date(2024, 2, 10, 17, 59, 59, 0, wib), true},
		{"at closing", time.Date(2024, 2, 10, 18, 0, 0, 0, wib), false},
		{"utc morning is wib afternoon", time.Date(2024, 2, 10, 11, 30, 0, 0, time.UTC), false},
		{"utc night is wib morning", time.Date(2024, 2, 10, 0, 30, 0, 0, time.UTC), true},
	}
	allowed := 0
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := gate.Toggle(ctx, "11112222", tc.at)
			if tc.allowed {
				assert.NoError(t, err)
				allowed++
				return
			}
			assert.ErrorIs(t, err, service.ErrOutOfWindow)
		})
	}

	snapshot, err := gate.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snapshot, allowed)
	assert.Len(t, notifier.all(), allowed)
}

func TestGateService_RejectsUnknownRFID(t *testing.T) {
	f := newFixture(t)
	f.register(t, "budi", "11112222")
	gate, notifier := newGate(f, 50)
	ctx := context.Background()

	for _, rfid := range []string{"", "1234", "99999999"} {
		_, err := gate.Toggle(ctx, rfid, morning(0))
		assert.ErrorIs(t, err, service.ErrInvalidCredential, "rfid %q", rfid)
	}

	snapshot, err := gate.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snapshot)
	assert.Empty(t, notifier.all())
}

func TestGateService_SnapshotSize(t *testing.T) {
	f := newFixture(t)
	f.register(t, "budi", "11112222")
	gate, _ := newGate(f, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := gate.Toggle(ctx, "11112222", morning(i))
		require.NoError(t, err)
	}

	snapshot, err := gate.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 3)
	assert.Equal(t, domain.StatusOpen, snapshot[0].Status)
	assert.True(t, snapshot[0].CreatedAt.Equal(morning(4)))
}

func TestGateService_ConcurrentToggles(t *testing.T) {
	f := newFixture(t)
	f.register(t, "budi", "11112222")
	f.register(t, "sari", "33334444")
	gate, notifier := newGate(f, 50)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		rfid := "11112222"
		if i%2 == 1 {
			rfid = "33334444"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gate.Toggle(ctx, rfid, morning(30))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snapshot, err := gate.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, n)

	opens := 0
	for _, e := range snapshot {
		if e.Status == domain.StatusOpen {
			opens++
		}
	}
	assert.Equal(t, n/2, opens)

	// Every notification is a superset of the one before it.
	snapshots := notifier.all()
	require.Len(t, snapshots, n)
	for i, s := range snapshots {
		assert.Len(t, s, i+1)
	}
}

func TestGateService_BroadcastRepublishesSnapshot(t *testing.T) {
	f := newFixture(t)
	f.register(t, "budi", "11112222")
	gate, notifier := newGate(f, 50)
	ctx := context.Background()

	empty, err := gate.Broadcast(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	toggled, err := gate.Toggle(ctx, "11112222", morning(0))
	require.NoError(t, err)

	snapshot, err := gate.Broadcast(ctx)
	require.NoError(t, err)
	assert.Equal(t, toggled.Snapshot, snapshot)

	snapshots := notifier.all()
	require.Len(t, snapshots, 3)
	assert.Empty(t, snapshots[0])
	assert.Equal(t, snapshot, snapshots[2])
}

func TestGateService_SnapshotHeadIsCurrentState(t *testing.T) {
	f := newFixture(t)
	f.register(t, "budi", "11112222")
	gate, _ := newGate(f, 50)
	ctx := context.Background()

	_, err := gate.Toggle(ctx, "11112222", morning(30))
	require.NoError(t, err)
	// The clock stepped back a few minutes between toggles.
	closed, err := gate.Toggle(ctx, "11112222", morning(10))
	require.NoError(t, err)

	snapshot, err := gate.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, closed.Event.ID, snapshot[0].ID)
	assert.Equal(t, domain.StatusClosed, snapshot[0].Status)
}
