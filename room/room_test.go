package room

import (
	"testing"
	"time"

	"github.com/wfunc/fishserver/ledger"
	"github.com/wfunc/fishserver/models"
	"github.com/wfunc/fishserver/timer"
)

// MockBroadcaster is a test double for the Broadcaster interface.
type MockBroadcaster struct{}

func (m *MockBroadcaster) BroadcastToRoom(roomID int64, event string, payload interface{}) error {
	return nil
}

func (m *MockBroadcaster) BroadcastToRoomExcept(roomID int64, exceptSessionID string, event string, payload interface{}) error {
	return nil
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	timers := timer.NewManager()
	t.Cleanup(timers.Stop)
	m := NewManager(timers, 4)
	m.SetBroadcaster(&MockBroadcaster{})
	return m
}

func newTestOccupant(userID string, score int64) *models.Occupant {
	return &models.Occupant{
		UserID:     userID,
		Name:       "tester_" + userID,
		Score:      score,
		CannonKind: 1,
	}
}

func seat(t *testing.T, r *Room, userID string, score int64) *models.Occupant {
	t.Helper()
	occ := newTestOccupant(userID, score)
	if _, err := r.AddOccupant(occ, "sess_"+userID); err != nil {
		t.Fatalf("failed to seat %s: %v", userID, err)
	}
	return occ
}

func TestManager_MatchmakingReusesOpenRoom(t *testing.T) {
	m := newTestManager(t)

	r1 := m.FindOrCreateRoom(1)
	seat(t, r1, "u1", 1000)

	r2 := m.FindOrCreateRoom(1)
	if r2.ID != r1.ID {
		t.Errorf("open room for the same wager tier should be reused, got %d and %d", r1.ID, r2.ID)
	}
	if m.RoomCount() != 1 {
		t.Errorf("expected 1 room, got %d", m.RoomCount())
	}
}

func TestManager_DifferentWagerTiersGetDifferentRooms(t *testing.T) {
	m := newTestManager(t)

	r1 := m.FindOrCreateRoom(1)
	r2 := m.FindOrCreateRoom(50)
	if r1.ID == r2.ID {
		t.Error("different wager tiers must not share a room")
	}
}

func TestRoom_CapacityIsFourSeats(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)

	for i, uid := range []string{"a", "b", "c", "d"} {
		occ := newTestOccupant(uid, 1000)
		seatIdx, err := r.AddOccupant(occ, "sess_"+uid)
		if err != nil {
			t.Fatalf("seat %d: %v", i, err)
		}
		if seatIdx != i {
			t.Errorf("expected first-free seat %d, got %d", i, seatIdx)
		}
	}

	if _, err := r.AddOccupant(newTestOccupant("e", 1000), "sess_e"); err != ErrRoomFull {
		t.Errorf("fifth occupant should get ErrRoomFull, got %v", err)
	}

	// A full room is skipped by matchmaking.
	other := m.FindOrCreateRoom(1)
	if other.ID == r.ID {
		t.Error("matchmaking returned a full room")
	}
}

func TestRoom_SeatReassignedAfterLeave(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)

	seat(t, r, "a", 1000)
	seat(t, r, "b", 1000)
	r.RemoveOccupant("a")

	occ := newTestOccupant("c", 1000)
	seatIdx, err := r.AddOccupant(occ, "sess_c")
	if err != nil {
		t.Fatalf("AddOccupant: %v", err)
	}
	if seatIdx != 0 {
		t.Errorf("freed seat 0 should be reassigned first, got %d", seatIdx)
	}
}

func TestRoom_FireDeductsCostAndStoresBullet(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)
	occ := seat(t, r, "u1", 1000)
	occ.CannonKind = 6 // multiplier 5

	result, err := r.Fire("u1", 0, time.Now())
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}
	if result.Bullet.Cost != 5 {
		t.Errorf("cost = %d, want 5", result.Bullet.Cost)
	}
	if result.Score != 995 {
		t.Errorf("score after fire = %d, want 995", result.Score)
	}
	if result.Power != 5 {
		t.Errorf("laser power = %d, want 5", result.Power)
	}
	if r.BulletCount() != 1 {
		t.Errorf("bullet count = %d, want 1", r.BulletCount())
	}
}

func TestRoom_FireRejectedWhenBroke(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)
	occ := seat(t, r, "u1", 3)
	occ.CannonKind = 6 // cost 5 > score 3

	if _, err := r.Fire("u1", 0, time.Now()); err != ErrInsufficientBank {
		t.Errorf("expected ErrInsufficientBank, got %v", err)
	}
	if score, _ := r.Score("u1"); score != 3 {
		t.Errorf("a rejected fire must not touch the score, got %d", score)
	}
}

func TestRoom_CatchCreditsAndConsumesFishOnce(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)
	r.SetRandFunc(func() float64 { return 0 }) // always hit

	occ := seat(t, r, "u1", 1000)
	occ.CannonKind = 6 // multiplier 5, cost 5

	fire, err := r.Fire("u1", 0, time.Now())
	if err != nil {
		t.Fatalf("Fire: %v", err)
	}

	fish := r.SpawnFishForTest(3) // multiplier 3

	result, err := r.ResolveCatch("u1", fire.Bullet.BulletID, []int64{fish.FishID})
	if err != nil {
		t.Fatalf("ResolveCatch: %v", err)
	}
	if len(result.Captures) != 1 {
		t.Fatalf("captures = %d, want 1", len(result.Captures))
	}
	if result.Captures[0].Reward != 15 {
		t.Errorf("reward = %d, want 15", result.Captures[0].Reward)
	}
	// 1000 - 5 (fire) + 15 (reward) = 1010: net +10 per the wager scenario.
	if result.Score != 1010 {
		t.Errorf("score = %d, want 1010", result.Score)
	}
	if r.FishCount() != 0 {
		t.Error("captured fish should be removed")
	}

	// A second catch referencing the same fish id is a no-op.
	again, err := r.ResolveCatch("u1", fire.Bullet.BulletID, []int64{fish.FishID})
	if err != nil {
		t.Fatalf("second ResolveCatch: %v", err)
	}
	if len(again.Captures) != 0 {
		t.Error("a captured fish must not be capturable again")
	}
	if again.Score != 1010 {
		t.Errorf("score changed on no-op catch: %d", again.Score)
	}
}

func TestRoom_CatchMissStillConsumesBullet(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)
	r.SetRandFunc(func() float64 { return 0.9999 }) // always miss

	seat(t, r, "u1", 1000)
	fire, _ := r.Fire("u1", 0, time.Now())
	fish := r.SpawnFishForTest(5)

	result, err := r.ResolveCatch("u1", fire.Bullet.BulletID, []int64{fish.FishID})
	if err != nil {
		t.Fatalf("ResolveCatch: %v", err)
	}
	if len(result.Captures) != 0 {
		t.Error("a missed draw must not capture")
	}
	if r.BulletCount() != 0 {
		t.Error("the bullet is single-use regardless of outcome")
	}
	if r.FishCount() != 1 {
		t.Error("a missed fish stays alive")
	}
}

func TestRoom_CatchRejectsForeignBullet(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)
	r.SetRandFunc(func() float64 { return 0 })

	seat(t, r, "owner", 1000)
	seat(t, r, "thief", 1000)

	fire, _ := r.Fire("owner", 0, time.Now())
	fish := r.SpawnFishForTest(3)

	if _, err := r.ResolveCatch("thief", fire.Bullet.BulletID, []int64{fish.FishID}); err != ErrBulletOwnership {
		t.Fatalf("expected ErrBulletOwnership, got %v", err)
	}
	if r.BulletCount() != 1 {
		t.Error("an ownership rejection must not consume the bullet")
	}
	if r.FishCount() != 1 {
		t.Error("an ownership rejection must not remove fish")
	}
}

func TestRoom_CatchMissingBulletUsesReconstructedCost(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)
	r.SetRandFunc(func() float64 { return 0 })

	occ := seat(t, r, "u1", 1000)
	occ.CannonKind = 6 // current multiplier 5

	fish := r.SpawnFishForTest(3)

	result, err := r.ResolveCatch("u1", 424242, []int64{fish.FishID})
	if err != nil {
		t.Fatalf("ResolveCatch: %v", err)
	}
	if !result.Reconstructed {
		t.Error("missing bullet should resolve through the fallback")
	}
	// Reconstructed cost 5 x fish multiplier 3 = 15, credited on top of 1000.
	if result.Score != 1015 {
		t.Errorf("score = %d, want 1015", result.Score)
	}
}

func TestRoom_BombKindSweepsSmallFish(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)
	r.SetRandFunc(func() float64 { return 0 })

	seat(t, r, "u1", 1000)
	fire, _ := r.Fire("u1", 0, time.Now())

	bomb := r.SpawnFishForTest(21)
	for i := 0; i < 25; i++ {
		r.SpawnFishForTest(2) // small fish
	}
	big := r.SpawnFishForTest(34) // untouched by the sweep

	result, err := r.ResolveCatch("u1", fire.Bullet.BulletID, []int64{bomb.FishID})
	if err != nil {
		t.Fatalf("ResolveCatch: %v", err)
	}
	// Bomb itself plus at most 20 small fish.
	if len(result.Captures) != 1+ledger.BombSweepLimit {
		t.Errorf("captures = %d, want %d", len(result.Captures), 1+ledger.BombSweepLimit)
	}
	if _, alive := r.fish[big.FishID]; !alive {
		t.Error("a bomb sweep must not take large fish")
	}
}

func TestRoom_LaserRequiresFullChargeAndResets(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)

	occ := seat(t, r, "u1", 100000)
	f1 := r.SpawnFishForTest(14)
	f2 := r.SpawnFishForTest(16)

	if _, err := r.ResolveLaserCatch("u1", []int64{f1.FishID}, time.Now()); err != ErrLaserNotCharged {
		t.Fatalf("expected ErrLaserNotCharged, got %v", err)
	}

	occ.LaserPower = r.LaserThreshold()
	now := time.Now()
	result, err := r.ResolveLaserCatch("u1", []int64{f1.FishID, f2.FishID}, now)
	if err != nil {
		t.Fatalf("ResolveLaserCatch: %v", err)
	}
	if len(result.Captures) != 2 {
		t.Errorf("laser removes all referenced fish, got %d captures", len(result.Captures))
	}
	if result.Power != 0 {
		t.Error("laser must reset the charge accumulator")
	}
	if !occ.LastLaserAt.Equal(now) {
		t.Error("laser must start the cooldown window")
	}
	if r.FishCount() != 0 {
		t.Error("laser-swept fish should be gone")
	}
}

func TestRoom_ChargedCannonCooldownBlocksFire(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)

	occ := seat(t, r, "u1", 100000)
	occ.CannonKind = ledger.ChargedCannonKind
	occ.LastLaserAt = time.Now()

	if _, err := r.Fire("u1", 0, time.Now()); err != ErrLaserCooldown {
		t.Errorf("expected ErrLaserCooldown, got %v", err)
	}

	// Past the window the shot goes through.
	occ.LastLaserAt = time.Now().Add(-ledger.LaserCooldownSeconds*time.Second - time.Second)
	if _, err := r.Fire("u1", 0, time.Now()); err != nil {
		t.Errorf("fire after cooldown should succeed, got %v", err)
	}
}

func TestRoom_ChangeCannonGating(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)
	occ := seat(t, r, "u1", 1000)

	if _, err := r.ChangeCannon("u1", 4); err != ErrCannonLocked {
		t.Errorf("vip 0 must not equip cannon 4, got %v", err)
	}

	occ.VipLevel = 1
	if _, err := r.ChangeCannon("u1", 4); err != nil {
		t.Errorf("vip 1 should equip cannon 4, got %v", err)
	}

	if _, err := r.ChangeCannon("u1", ledger.ChargedCannonKind); err != ErrLaserNotCharged {
		t.Errorf("charged cannon needs a full charge, got %v", err)
	}
	occ.LaserPower = r.LaserThreshold()
	if _, err := r.ChangeCannon("u1", ledger.ChargedCannonKind); err != nil {
		t.Errorf("full charge should unlock the charged cannon, got %v", err)
	}
}

func TestRoom_FreezeSuppressesSpawn(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)
	seat(t, r, "u1", 1000)

	r.Freeze(time.Now())
	r.spawnBatch(spawnTiers[0], false)
	if r.FishCount() != 0 {
		t.Error("spawning must be suppressed while frozen")
	}

	// An expired freeze window no longer suppresses.
	r.mu.Lock()
	r.frozenUntil = time.Now().Add(-time.Second)
	r.mu.Unlock()
	r.spawnBatch(spawnTiers[0], false)
	if r.FishCount() != spawnTiers[0].count {
		t.Errorf("tier 1 should spawn %d fish, got %d", spawnTiers[0].count, r.FishCount())
	}
}

func TestRoom_EmptyRoomDoesNotSpawn(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)

	r.spawnBatch(spawnTiers[0], false)
	if r.FishCount() != 0 {
		t.Error("an empty room must not spawn fish")
	}
}

func TestRoom_SweepEvictsExpiredFish(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)
	seat(t, r, "u1", 1000)

	fresh := r.SpawnFishForTest(2)
	stale := r.SpawnFishForTest(3)
	r.mu.Lock()
	r.fish[stale.FishID].SpawnAt = time.Now().Add(-FishTTL - time.Second)
	r.mu.Unlock()

	if removed := r.sweepExpired(time.Now()); removed != 1 {
		t.Errorf("sweep removed %d fish, want 1", removed)
	}
	if _, alive := r.fish[fresh.FishID]; !alive {
		t.Error("fresh fish must survive the sweep")
	}
}

func TestRoom_GlobalIDsAreUniqueAcrossRooms(t *testing.T) {
	m := newTestManager(t)
	r1 := m.FindOrCreateRoom(1)
	r2 := m.FindOrCreateRoom(50)
	seat(t, r1, "a", 1000)
	seat(t, r2, "b", 1000)

	seen := make(map[int64]bool)
	for i := 0; i < 10; i++ {
		f1 := r1.SpawnFishForTest(2)
		f2 := r2.SpawnFishForTest(2)
		for _, id := range []int64{f1.FishID, f2.FishID} {
			if seen[id] {
				t.Fatalf("fish id %d allocated twice", id)
			}
			seen[id] = true
		}
	}
}

func TestManager_EmptyRoomDeletedAfterGrace(t *testing.T) {
	m := newTestManager(t)
	m.emptyGrace = 150 * time.Millisecond

	r := m.FindOrCreateRoom(1)
	seat(t, r, "u1", 1000)
	r.RemoveOccupant("u1")
	m.CheckAndScheduleDeletion(r.ID)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, exists := m.GetRoom(r.ID); !exists {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("a still-empty room should be deleted once the grace period lapses")
}

func TestManager_ReseatDuringGraceKeepsRoom(t *testing.T) {
	m := newTestManager(t)
	m.emptyGrace = 150 * time.Millisecond

	r := m.FindOrCreateRoom(1)
	seat(t, r, "u1", 1000)
	r.RemoveOccupant("u1")
	m.CheckAndScheduleDeletion(r.ID)
	seat(t, r, "u2", 1000)

	// Well past the grace window plus the scheduler tick.
	time.Sleep(600 * time.Millisecond)
	if _, exists := m.GetRoom(r.ID); !exists {
		t.Fatal("a re-occupied room must survive the grace check")
	}
	if occ, ok := r.GetOccupant("u2"); !ok || occ.Score != 1000 {
		t.Error("the surviving room lost its occupant state")
	}
}

func TestRoom_DebitIfRetainsEnforcesFloor(t *testing.T) {
	m := newTestManager(t)
	r := m.FindOrCreateRoom(1)
	seat(t, r, "u1", 1000)

	// 1000 - 600 = 400 < 500: rejected, untouched.
	if _, err := r.DebitIfRetains("u1", 600, 500); err != ErrInsufficientBank {
		t.Fatalf("expected ErrInsufficientBank, got %v", err)
	}
	if score, _ := r.Score("u1"); score != 1000 {
		t.Errorf("rejected debit must not change the score, got %d", score)
	}

	newScore, err := r.DebitIfRetains("u1", 400, 500)
	if err != nil {
		t.Fatalf("DebitIfRetains: %v", err)
	}
	if newScore != 600 {
		t.Errorf("score = %d, want 600", newScore)
	}
}
