// room/spawn.go
package room

import (
	"time"

	"github.com/wfunc/fishserver/models"
	"github.com/wfunc/fishserver/network"
	"github.com/wfunc/fishserver/timer"
)

// Spawn tiers. Tier 1 fills the screen with small fish, tier 4 is the
// boss. Intervals follow the live deployment's cadence.
type spawnTier struct {
	kindStart int
	kindEnd   int
	count     int
	interval  time.Duration
}

var spawnTiers = []spawnTier{
	{kindStart: 1, kindEnd: 15, count: 2, interval: 2 * time.Second},
	{kindStart: 16, kindEnd: 20, count: 1, interval: 10100 * time.Millisecond},
	{kindStart: 21, kindEnd: 34, count: 1, interval: 30200 * time.Millisecond},
	{kindStart: 35, kindEnd: 35, count: 1, interval: 61 * time.Second},
}

const cleanupInterval = 10 * time.Second

// begin starts the room's spawn and cleanup schedule. Called once on
// creation; the task ids are kept so deletion can cancel them.
func (r *Room) begin(timers *timer.Manager) {
	for i := range spawnTiers {
		tier := spawnTiers[i]
		boss := i == len(spawnTiers)-1
		id := timers.Schedule(tier.interval, tier.interval, func() {
			r.spawnBatch(tier, boss)
		})
		r.taskIDs = append(r.taskIDs, id)
	}

	cleanupID := timers.Schedule(cleanupInterval, cleanupInterval, func() {
		r.sweepExpired(time.Now())
	})
	r.taskIDs = append(r.taskIDs, cleanupID)
}

func (r *Room) stopTasks(timers *timer.Manager) {
	for _, id := range r.taskIDs {
		timers.Cancel(id)
	}
	r.taskIDs = nil
}

// spawnBatch creates one tier's batch and pushes it to the room channel.
// Suppressed entirely while the room is frozen or empty.
func (r *Room) spawnBatch(tier spawnTier, boss bool) {
	now := time.Now()
	// Fetched before taking the room lock: the manager lock is never
	// acquired under a room lock.
	broadcaster := r.manager.getBroadcaster()

	r.mu.Lock()
	if len(r.occupants) == 0 || now.Before(r.frozenUntil) {
		r.mu.Unlock()
		return
	}

	kind := tier.kindStart
	if span := tier.kindEnd - tier.kindStart + 1; span > 1 {
		kind += r.manager.randInt(span)
	}

	batch := make([]*models.Fish, 0, tier.count)
	for i := 0; i < tier.count; i++ {
		fish := &models.Fish{
			FishID:   r.manager.NextFishID(),
			FishKind: kind,
			TraceID:  r.pickTraceLocked(boss),
			Speed:    fishSpeed(kind),
			SpawnAt:  now,
		}
		r.fish[fish.FishID] = fish
		batch = append(batch, fish)
	}
	r.mu.Unlock()

	r.manager.observeSpawn(len(batch))
	if broadcaster != nil {
		broadcaster.BroadcastToRoom(r.ID, network.EvtBuildFish, batch)
	}
}

// pickTraceLocked chooses a swim path id. Bosses stick to the long sweep
// paths (101-110); everything else mixes in the curved set (201-217) a
// third of the time.
func (r *Room) pickTraceLocked(boss bool) int {
	if boss {
		return 101 + r.manager.randInt(10)
	}
	if r.manager.randInt(3) == 0 {
		return 201 + r.manager.randInt(17)
	}
	return 101 + r.manager.randInt(10)
}

func fishSpeed(kind int) int {
	if kind >= 30 {
		return 3
	}
	return 5
}

// SpawnFishForTest injects a fish directly; room and game tests use it to
// avoid waiting on the spawn schedule.
func (r *Room) SpawnFishForTest(kind int) *models.Fish {
	r.mu.Lock()
	defer r.mu.Unlock()

	fish := &models.Fish{
		FishID:   r.manager.NextFishID(),
		FishKind: kind,
		TraceID:  101,
		Speed:    fishSpeed(kind),
		SpawnAt:  time.Now(),
	}
	r.fish[fish.FishID] = fish
	return fish
}
