package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedule_OneShot(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var fired int32
	m.Schedule(50*time.Millisecond, 0, func() {
		atomic.AddInt32(&fired, 1)
	})

	time.Sleep(400 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Errorf("one-shot task fired %d times, want 1", got)
	}
}

func TestSchedule_Repeating(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var fired int32
	m.Schedule(0, 100*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})

	time.Sleep(550 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got < 3 {
		t.Errorf("repeating task fired %d times, want at least 3", got)
	}
}

func TestCancel(t *testing.T) {
	m := NewManager()
	defer m.Stop()

	var fired int32
	id := m.Schedule(300*time.Millisecond, 0, func() {
		atomic.AddInt32(&fired, 1)
	})
	m.Cancel(id)

	time.Sleep(500 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("canceled task fired %d times, want 0", got)
	}
}

func TestStopPreventsPendingTasks(t *testing.T) {
	m := NewManager()

	var fired int32
	m.Schedule(200*time.Millisecond, 0, func() {
		atomic.AddInt32(&fired, 1)
	})
	m.Stop()

	time.Sleep(450 * time.Millisecond)
	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Errorf("task fired %d times after Stop, want 0", got)
	}
}
