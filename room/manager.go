// room/manager.go
package room

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wfunc/fishserver/timer"
)

// idBase is where the room, fish and bullet counters start. Ids are
// engine-global so they stay unique across every room in the process.
const idBase = 1000

// EmptyRoomGrace is how long an empty room survives before deletion. It
// tolerates brief reconnects without discarding in-flight state.
const EmptyRoomGrace = 60 * time.Second

// Manager owns every live room plus the engine-global id counters. It is
// constructed once at startup and handed to the protocol handlers; there
// are no ambient globals.
type Manager struct {
	mu          sync.RWMutex
	rooms       map[int64]*Room
	timers      *timer.Manager
	broadcaster Broadcaster
	spawnHook   func(n int)
	maxSeats    int
	emptyGrace  time.Duration
	randFunc    func() float64
	randInt     func(n int) int

	nextRoomID   int64
	nextFishID   int64
	nextBulletID int64
}

func NewManager(timers *timer.Manager, maxSeats int) *Manager {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	var srcMu sync.Mutex
	return &Manager{
		rooms:      make(map[int64]*Room),
		timers:     timers,
		maxSeats:   maxSeats,
		emptyGrace: EmptyRoomGrace,
		randFunc: func() float64 {
			srcMu.Lock()
			defer srcMu.Unlock()
			return src.Float64()
		},
		randInt: func(n int) int {
			srcMu.Lock()
			defer srcMu.Unlock()
			return src.Intn(n)
		},
		nextRoomID:   idBase,
		nextFishID:   idBase,
		nextBulletID: idBase,
	}
}

// SetBroadcaster wires the broadcaster after construction; the broadcaster
// itself needs the manager, so this breaks the chicken-and-egg at startup.
func (m *Manager) SetBroadcaster(b Broadcaster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcaster = b
}

func (m *Manager) getBroadcaster() Broadcaster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.broadcaster
}

// SetSpawnObserver registers a callback invoked with each spawn batch size.
// The metrics layer hooks in here.
func (m *Manager) SetSpawnObserver(f func(n int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spawnHook = f
}

func (m *Manager) observeSpawn(n int) {
	m.mu.RLock()
	hook := m.spawnHook
	m.mu.RUnlock()
	if hook != nil {
		hook(n)
	}
}

func (m *Manager) NextFishID() int64 {
	return atomic.AddInt64(&m.nextFishID, 1)
}

func (m *Manager) NextBulletID() int64 {
	return atomic.AddInt64(&m.nextBulletID, 1)
}

// FindOrCreateRoom returns an existing room with the requested wager unit
// and a free seat, or creates one. A tier with an open room never gets a
// superfluous new room.
func (m *Manager) FindOrCreateRoom(wagerUnit int64) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.rooms {
		if r.BaseScore == wagerUnit && r.OccupantCount() < r.MaxSeats {
			return r
		}
	}

	id := atomic.AddInt64(&m.nextRoomID, 1)
	r := newRoom(id, wagerUnit, m.maxSeats, m)
	m.rooms[id] = r
	r.begin(m.timers)
	return r
}

func (m *Manager) GetRoom(id int64) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, exists := m.rooms[id]
	return r, exists
}

func (m *Manager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Rooms returns a snapshot of all live rooms.
func (m *Manager) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		list = append(list, r)
	}
	return list
}

// CheckAndScheduleDeletion starts the empty-room grace period. If the room
// is still empty when it elapses, the room's timers stop and the room goes
// away.
func (m *Manager) CheckAndScheduleDeletion(roomID int64) {
	r, exists := m.GetRoom(roomID)
	if !exists || r.OccupantCount() > 0 {
		return
	}

	m.timers.Schedule(m.emptyGrace, 0, func() {
		r, exists := m.GetRoom(roomID)
		if !exists || r.OccupantCount() > 0 {
			return
		}
		m.RemoveRoom(roomID)
	})
}

// RemoveRoom stops the room's scheduled work and drops it.
func (m *Manager) RemoveRoom(roomID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, exists := m.rooms[roomID]
	if !exists {
		return
	}
	r.stopTasks(m.timers)
	delete(m.rooms, roomID)
}

// Close tears every room down. Used on shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.rooms {
		r.stopTasks(m.timers)
		delete(m.rooms, id)
	}
}
