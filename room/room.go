// room/room.go
package room

import (
	"errors"
	"sync"
	"time"

	"github.com/wfunc/fishserver/models"
)

var (
	ErrRoomFull         = errors.New("room is full")
	ErrNotSeated        = errors.New("user is not seated in this room")
	ErrAlreadySeated    = errors.New("user is already seated in this room")
	ErrBulletOwnership  = errors.New("bullet is owned by another user")
	ErrInsufficientBank = errors.New("score too low for shot cost")
	ErrLaserCooldown    = errors.New("charged cannon is cooling down")
	ErrLaserNotCharged  = errors.New("laser charge below threshold")
	ErrCannonLocked     = errors.New("cannon kind not unlocked")
)

// FreezeDuration is the spawn-suppression window opened by user_frozen.
const FreezeDuration = 10 * time.Second

// FishTTL is how long an uncaught fish stays alive before the sweep
// evicts it.
const FishTTL = 120 * time.Second

// Room is one authoritative simulation instance. A single mutex makes
// every compound read-modify-write explicitly single-writer; handlers
// never rely on scheduling accidents for atomicity. Broadcasts happen
// outside the lock.
type Room struct {
	ID int64
	// BaseScore is the scaled wager unit; all costs and rewards are
	// multiples of it.
	BaseScore int64
	MaxSeats  int
	CreatedAt time.Time

	mu          sync.Mutex
	occupants   map[string]*models.Occupant // userID -> occupant
	seats       []string                    // seat index -> userID ("" when free)
	sessions    map[string]string           // userID -> sessionID
	fish        map[int64]*models.Fish
	bullets     map[int64]*models.Bullet
	frozenUntil time.Time

	manager  *Manager
	taskIDs  []int64
	randFunc func() float64
}

func newRoom(id, baseScore int64, maxSeats int, m *Manager) *Room {
	return &Room{
		ID:        id,
		BaseScore: baseScore,
		MaxSeats:  maxSeats,
		CreatedAt: time.Now(),
		occupants: make(map[string]*models.Occupant),
		seats:     make([]string, maxSeats),
		sessions:  make(map[string]string),
		fish:      make(map[int64]*models.Fish),
		bullets:   make(map[int64]*models.Bullet),
		manager:   m,
		randFunc:  m.randFunc,
	}
}

// SetRandFunc overrides the capture-draw source. Tests use it to force
// deterministic hits and misses.
func (r *Room) SetRandFunc(f func() float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.randFunc = f
}

// AddOccupant seats a player. Returns the assigned seat index (first free,
// 0-based) or ErrRoomFull. Re-seating a resident user is an error; the
// caller re-attaches to the existing occupant instead.
func (r *Room) AddOccupant(occ *models.Occupant, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.occupants[occ.UserID]; exists {
		return 0, ErrAlreadySeated
	}
	if len(r.occupants) >= r.MaxSeats {
		return 0, ErrRoomFull
	}

	seat := -1
	for i, uid := range r.seats {
		if uid == "" {
			seat = i
			break
		}
	}
	if seat < 0 {
		return 0, ErrRoomFull
	}

	occ.SeatIndex = seat
	occ.Online = true
	occ.JoinedAt = time.Now()
	r.seats[seat] = occ.UserID
	r.occupants[occ.UserID] = occ
	r.sessions[occ.UserID] = sessionID
	return seat, nil
}

// Reattach binds a new session to an occupant already resident in memory
// (duplicate login into the same room). The live score is kept; the stale
// persisted value must not clobber it.
func (r *Room) Reattach(userID, sessionID string) (*models.Occupant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ, exists := r.occupants[userID]
	if !exists {
		return nil, false
	}
	occ.Online = true
	r.sessions[userID] = sessionID
	return occ, true
}

// RemoveOccupant frees the seat and returns the final occupant state for
// persistence.
func (r *Room) RemoveOccupant(userID string) (*models.Occupant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ, exists := r.occupants[userID]
	if !exists {
		return nil, false
	}
	if occ.SeatIndex >= 0 && occ.SeatIndex < len(r.seats) {
		r.seats[occ.SeatIndex] = ""
	}
	delete(r.occupants, userID)
	delete(r.sessions, userID)
	return occ, true
}

func (r *Room) GetOccupant(userID string) (*models.Occupant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	occ, exists := r.occupants[userID]
	return occ, exists
}

func (r *Room) OccupantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.occupants)
}

// SessionIDs returns the session ids of all occupants, for room-scoped
// broadcast delivery.
func (r *Room) SessionIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for _, sid := range r.sessions {
		ids = append(ids, sid)
	}
	return ids
}

// SessionIDOf returns the session currently attached to a resident user.
func (r *Room) SessionIDOf(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sid, ok := r.sessions[userID]
	return sid, ok
}

// Freeze opens (or extends) the spawn-suppression window and returns its
// end time.
func (r *Room) Freeze(now time.Time) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozenUntil = now.Add(FreezeDuration)
	return r.frozenUntil
}

func (r *Room) IsFrozen(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return now.Before(r.frozenUntil)
}

// Seats returns the client-facing seat array, empty slots included.
func (r *Room) Seats() []models.SeatSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seatsLocked()
}

func (r *Room) seatsLocked() []models.SeatSnapshot {
	snapshots := make([]models.SeatSnapshot, r.MaxSeats)
	for i := range snapshots {
		snapshots[i] = models.EmptySeat(i)
	}
	for _, occ := range r.occupants {
		if occ.SeatIndex >= 0 && occ.SeatIndex < len(snapshots) {
			snapshots[occ.SeatIndex] = occ.Snapshot()
		}
	}
	return snapshots
}

// LiveFish returns a copy of the live target list.
func (r *Room) LiveFish() []*models.Fish {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]*models.Fish, 0, len(r.fish))
	for _, f := range r.fish {
		list = append(list, f)
	}
	return list
}

func (r *Room) FishCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fish)
}

func (r *Room) BulletCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bullets)
}

// GetBullet looks a live bullet up without consuming it.
func (r *Room) GetBullet(bulletID int64) (*models.Bullet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bullets[bulletID]
	return b, ok
}

// sweepExpired drops fish older than FishTTL. Runs on the cleanup timer.
func (r *Room) sweepExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, f := range r.fish {
		if now.Sub(f.SpawnAt) > FishTTL {
			delete(r.fish, id)
			removed++
		}
	}
	return removed
}
