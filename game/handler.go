// Package game implements the per-connection protocol handler: it decodes
// wire messages, drives the room simulation and owns the login/exit
// lifecycle. Gameplay failures are dropped or answered with an error code;
// they never kill the connection.
package game

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/wfunc/fishserver/broadcast"
	"github.com/wfunc/fishserver/ledger"
	"github.com/wfunc/fishserver/logger"
	"github.com/wfunc/fishserver/models"
	"github.com/wfunc/fishserver/monitor"
	"github.com/wfunc/fishserver/network"
	"github.com/wfunc/fishserver/room"
	"github.com/wfunc/fishserver/services"
	"github.com/wfunc/fishserver/session"
)

// Reply error codes carried in errcode fields.
const (
	CodeOK              = 0
	CodeBadRequest      = 1
	CodeAlreadyInRoom   = 2
	CodeInternal        = 3
	CodeBulletOwnership = 4
	CodeCannonLocked    = 5
	CodeLaserNotCharged = 6
)

// Handler carries every collaborator explicitly; there are no package
// globals, so two engines can coexist in one process (tests do).
type Handler struct {
	rooms       *room.Manager
	sessions    *session.Manager
	broadcaster broadcast.Broadcaster
	players     *services.PlayerService
	monitor     *monitor.Monitor
}

func NewHandler(rooms *room.Manager, sessions *session.Manager, b broadcast.Broadcaster, players *services.PlayerService) *Handler {
	return &Handler{
		rooms:       rooms,
		sessions:    sessions,
		broadcaster: b,
		players:     players,
	}
}

// SetMonitor wires the metrics sink. Optional; nil means no metrics.
func (h *Handler) SetMonitor(m *monitor.Monitor) {
	h.monitor = m
}

// HandleMessage dispatches one decoded wire message for a session.
func (h *Handler) HandleMessage(s *session.Session, msg *network.Message) {
	start := time.Now()
	if h.monitor != nil {
		h.monitor.IncMessagesReceived()
		defer func() { h.monitor.ObserveMessageLatency(time.Since(start)) }()
	}

	switch msg.Event {
	case network.EvtLogin:
		h.handleLogin(s, msg.Data)
	case network.EvtReady:
		h.handleReady(s)
	case network.EvtFire:
		h.handleFire(s, msg.Data)
	case network.EvtCatch:
		h.handleCatch(s, msg.Data)
	case network.EvtLaserCatch:
		h.handleLaserCatch(s, msg.Data)
	case network.EvtChangeCannon:
		h.handleChangeCannon(s, msg.Data)
	case network.EvtLockFish:
		h.handleLockFish(s, msg.Data)
	case network.EvtFrozen:
		h.handleFrozen(s)
	case network.EvtExit:
		h.handleExit(s)
	case network.EvtPing:
		_ = s.Send(network.EvtPong, map[string]int64{"time": time.Now().Unix()})
	default:
		logger.Log.Debugw("unknown event", "event", msg.Event, "session", s.ID)
	}
}

// handleLogin seats the player. Duplicate login into the room the user is
// already resident in re-attaches to the live occupant (the persisted
// balance must not clobber a live score); a prior residency in a different
// room is persisted and evicted first.
func (h *Handler) handleLogin(s *session.Session, data json.RawMessage) {
	var req network.LoginRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Token == "" {
		_ = s.Send(network.EvtLoginResult, &network.LoginReply{ErrCode: CodeBadRequest, ErrMsg: "invalid login"})
		return
	}
	// The sandbox token is the platform user id; a production deploy swaps
	// in a platform token exchange here.
	userID := req.Token

	if s.RoomID() != 0 {
		if req.RoomID != 0 && req.RoomID != s.RoomID() {
			_ = s.Send(network.EvtLoginResult, &network.LoginReply{ErrCode: CodeAlreadyInRoom, ErrMsg: "already in a room"})
			return
		}
		if r, ok := h.rooms.GetRoom(s.RoomID()); ok {
			h.sendLoginSuccess(s, r)
			return
		}
	}

	wagerUnit := ledger.WagerUnitForBaseParam(req.BaseParam)

	// Prior residency for this user, if any. At most one room holds the
	// user's live score at a time.
	var resident *room.Room
	for _, old := range h.sessions.GetByUserID(userID) {
		if old.ID == s.ID || old.RoomID() == 0 {
			continue
		}
		if r, ok := h.rooms.GetRoom(old.RoomID()); ok {
			resident = r
		}
	}

	var target *room.Room
	if req.RoomID != 0 {
		if r, ok := h.rooms.GetRoom(req.RoomID); ok {
			target = r
		}
	}
	if target == nil && resident != nil && req.RoomID == 0 && resident.BaseScore == wagerUnit {
		target = resident
	}
	if target == nil {
		target = h.rooms.FindOrCreateRoom(wagerUnit)
	}

	if resident != nil && resident.ID != target.ID {
		// Persist-then-disconnect: eviction must never lose the live score.
		h.evictFromRoom(userID, resident)
	}
	h.dropStaleSessions(userID, s.ID)

	// Loaded after any eviction so the balance reflects the just-persisted
	// live score, not a stale row.
	player, err := h.players.LoadOrCreate(userID, userID)
	if err != nil {
		logger.Log.Errorw("login load player failed", "user_id", userID, "error", err)
		_ = s.Send(network.EvtLoginResult, &network.LoginReply{ErrCode: CodeInternal, ErrMsg: "internal error"})
		return
	}

	var seat int
	occ, reattached := target.Reattach(userID, s.ID)
	if reattached {
		seat = occ.SeatIndex
	} else {
		occ = &models.Occupant{
			UserID:        userID,
			Name:          player.Name,
			Score:         player.Balance,
			Gold:          player.Balance,
			CannonKind:    ledger.CannonsForVip(player.VipLevel)[0],
			VipLevel:      player.VipLevel,
			TotalRecharge: player.TotalRecharge,
		}
		seat, err = target.AddOccupant(occ, s.ID)
		if errors.Is(err, room.ErrRoomFull) {
			// Capacity is a routing concern, not a user-visible failure.
			target = h.rooms.FindOrCreateRoom(wagerUnit)
			seat, err = target.AddOccupant(occ, s.ID)
		}
		if err != nil {
			logger.Log.Errorw("login seat failed", "user_id", userID, "room_id", target.ID, "error", err)
			_ = s.Send(network.EvtLoginResult, &network.LoginReply{ErrCode: CodeInternal, ErrMsg: "internal error"})
			return
		}
		if h.monitor != nil {
			h.monitor.IncOnlinePlayers()
		}
		_ = h.broadcaster.BroadcastToRoomExcept(target.ID, s.ID, network.EvtNewUserComes, occ.Snapshot())
	}

	s.Bind(userID, target.ID, seat)
	h.sendLoginSuccess(s, target)
	_ = s.Send(network.EvtLoginFinished, map[string]int64{"roomId": target.ID})

	if h.monitor != nil {
		h.monitor.SetActiveRooms(h.rooms.RoomCount())
	}
	logger.Log.Infow("user login", "user_id", userID, "room_id", target.ID, "seat", seat, "reattach", reattached)
}

func (h *Handler) sendLoginSuccess(s *session.Session, r *room.Room) {
	_ = s.Send(network.EvtLoginResult, &network.LoginReply{
		ErrCode: CodeOK,
		RoomID:  r.ID,
		Conf: &network.RoomConf{
			Type:          "fish",
			MaxSeats:      r.MaxSeats,
			GameBaseScore: r.BaseScore,
		},
		Seats: r.Seats(),
	})
}

// dropStaleSessions closes every other session bound to the user.
func (h *Handler) dropStaleSessions(userID, keepSessionID string) {
	for _, old := range h.sessions.GetByUserID(userID) {
		if old.ID == keepSessionID {
			continue
		}
		old.Unbind()
		_ = old.Close()
		h.sessions.Remove(old.ID)
		logger.Log.Infow("evicted stale session", "user_id", userID, "session", old.ID)
	}
}

func (h *Handler) handleReady(s *session.Session) {
	r, ok := h.boundRoom(s)
	if !ok {
		return
	}
	_ = s.Send(network.EvtGameSync, roomSync(r))
}

func (h *Handler) handleFire(s *session.Session, data json.RawMessage) {
	r, ok := h.boundRoom(s)
	if !ok {
		return
	}
	var req network.FireRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	res, err := r.Fire(s.UserID(), req.Angle, time.Now())
	if err != nil {
		// Cooldown violations and empty banks drop silently per protocol.
		logger.Log.Debugw("fire dropped", "user_id", s.UserID(), "room_id", r.ID, "reason", err)
		return
	}
	if h.monitor != nil {
		h.monitor.IncBulletsFired()
	}

	// The reply goes to the whole room, shooter included: bullet ids are
	// allocated here, so the shooter learns the id it must reference in
	// catch_fish from this push.
	_ = h.broadcaster.BroadcastToRoom(r.ID, network.EvtFireReply, &network.FireReply{
		BulletID:   res.Bullet.BulletID,
		UserID:     s.UserID(),
		SeatIndex:  res.Bullet.SeatIndex,
		CannonKind: res.Bullet.CannonKind,
		Angle:      req.Angle,
		Score:      res.Score,
		Power:      res.Power,
	})
}

func (h *Handler) handleCatch(s *session.Session, data json.RawMessage) {
	r, ok := h.boundRoom(s)
	if !ok {
		return
	}
	var req network.CatchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	res, err := r.ResolveCatch(s.UserID(), req.BulletID, req.FishIDs)
	if errors.Is(err, room.ErrBulletOwnership) {
		_ = s.Send(network.EvtCatchReply, &network.CatchReply{
			ErrCode:  CodeBulletOwnership,
			ErrMsg:   "bullet owned by another user",
			UserID:   s.UserID(),
			BulletID: req.BulletID,
		})
		return
	}
	if err != nil {
		logger.Log.Debugw("catch dropped", "user_id", s.UserID(), "room_id", r.ID, "reason", err)
		return
	}
	if res.Reconstructed {
		logger.Log.Warnw("catch resolved with reconstructed bullet cost",
			"user_id", s.UserID(), "room_id", r.ID, "bullet_id", req.BulletID)
	}

	h.broadcastCatch(r.ID, s.UserID(), res)
}

func (h *Handler) handleLaserCatch(s *session.Session, data json.RawMessage) {
	r, ok := h.boundRoom(s)
	if !ok {
		return
	}
	var req network.LaserCatchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	res, err := r.ResolveLaserCatch(s.UserID(), req.FishIDs, time.Now())
	if err != nil {
		// Under-charged sweeps are a no-op per protocol.
		logger.Log.Debugw("laser catch dropped", "user_id", s.UserID(), "room_id", r.ID, "reason", err)
		return
	}

	h.broadcastCatch(r.ID, s.UserID(), res)
}

func (h *Handler) broadcastCatch(roomID int64, userID string, res *room.CatchResult) {
	caught := make([]network.CaughtFish, 0, len(res.Captures))
	for _, c := range res.Captures {
		caught = append(caught, network.CaughtFish{
			FishID:   c.FishID,
			FishKind: c.FishKind,
			AddScore: c.Reward,
		})
	}
	if h.monitor != nil {
		h.monitor.AddFishCaptured(len(caught))
	}
	_ = h.broadcaster.BroadcastToRoom(roomID, network.EvtCatchReply, &network.CatchReply{
		ErrCode:   CodeOK,
		UserID:    userID,
		SeatIndex: res.SeatIndex,
		BulletID:  res.BulletID,
		Caught:    caught,
		Score:     res.Score,
		Power:     res.Power,
	})
}

func (h *Handler) handleChangeCannon(s *session.Session, data json.RawMessage) {
	r, ok := h.boundRoom(s)
	if !ok {
		return
	}
	var req network.ChangeCannonRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	occ, err := r.ChangeCannon(s.UserID(), req.CannonKind)
	if err != nil {
		code := CodeCannonLocked
		if errors.Is(err, room.ErrLaserNotCharged) {
			code = CodeLaserNotCharged
		}
		_ = s.Send(network.EvtChangeCannonReply, &network.ChangeCannonReply{
			ErrCode: code,
			ErrMsg:  err.Error(),
			UserID:  s.UserID(),
		})
		return
	}

	_ = h.broadcaster.BroadcastToRoom(r.ID, network.EvtChangeCannonReply, &network.ChangeCannonReply{
		ErrCode:    CodeOK,
		UserID:     s.UserID(),
		SeatIndex:  occ.SeatIndex,
		CannonKind: occ.CannonKind,
	})
}

// handleLockFish is a pure relay: a visual aid with no state mutation.
func (h *Handler) handleLockFish(s *session.Session, data json.RawMessage) {
	r, ok := h.boundRoom(s)
	if !ok {
		return
	}
	var req network.LockFishRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	_ = h.broadcaster.BroadcastToRoomExcept(r.ID, s.ID, network.EvtLockFishReply, &network.LockFishReply{
		UserID:    s.UserID(),
		SeatIndex: s.SeatIndex(),
		FishID:    req.FishID,
	})
}

func (h *Handler) handleFrozen(s *session.Session) {
	r, ok := h.boundRoom(s)
	if !ok {
		return
	}
	until := r.Freeze(time.Now())
	_ = h.broadcaster.BroadcastToRoom(r.ID, network.EvtFrozenReply, &network.FrozenReply{
		UserID:      s.UserID(),
		FrozenUntil: until.Unix(),
	})
}

func (h *Handler) handleExit(s *session.Session) {
	h.HandleDisconnect(s)
}

// HandleDisconnect persists the final score, frees the seat and starts the
// empty-room grace check. Safe to call for sessions that never logged in.
func (h *Handler) HandleDisconnect(s *session.Session) {
	if s.RoomID() == 0 || s.UserID() == "" {
		return
	}
	r, ok := h.rooms.GetRoom(s.RoomID())
	if !ok {
		s.Unbind()
		return
	}

	// Only the session currently attached to the occupant may evict it; a
	// stale connection closing must not tear down the fresh login.
	if sid, attached := r.SessionIDOf(s.UserID()); attached && sid == s.ID {
		h.evictFromRoom(s.UserID(), r)
	}
	s.Unbind()
}

// evictFromRoom removes the occupant, persists the score and notifies the
// room. Ownership of the balance transfers back to the store here.
func (h *Handler) evictFromRoom(userID string, r *room.Room) {
	occ, ok := r.RemoveOccupant(userID)
	if !ok {
		return
	}

	if err := h.players.SaveScore(userID, occ.Score); err != nil {
		logger.Log.Errorw("persist score on exit failed",
			"user_id", userID, "room_id", r.ID, "score", occ.Score, "error", err)
	}

	_ = h.broadcaster.BroadcastToRoom(r.ID, network.EvtExitNotify, &network.ExitNotify{
		UserID:    userID,
		SeatIndex: occ.SeatIndex,
	})
	h.rooms.CheckAndScheduleDeletion(r.ID)

	if h.monitor != nil {
		h.monitor.DecOnlinePlayers()
		h.monitor.SetActiveRooms(h.rooms.RoomCount())
	}
	logger.Log.Infow("user exit", "user_id", userID, "room_id", r.ID, "score", occ.Score)
}

// FlushResidentScores persists every resident occupant's live score. Runs
// on the periodic flush job so a crash loses at most one interval.
func (h *Handler) FlushResidentScores() {
	for _, r := range h.rooms.Rooms() {
		for _, seat := range r.Seats() {
			if seat.UserID == "" {
				continue
			}
			if err := h.players.SaveScore(seat.UserID, seat.Score); err != nil {
				logger.Log.Errorw("score flush failed", "user_id", seat.UserID, "error", err)
			}
		}
	}
}

func (h *Handler) boundRoom(s *session.Session) (*room.Room, bool) {
	if s.RoomID() == 0 {
		return nil, false
	}
	return h.rooms.GetRoom(s.RoomID())
}

func roomSync(r *room.Room) *network.GameSync {
	return &network.GameSync{
		RoomID:    r.ID,
		BaseScore: r.BaseScore,
		Seats:     r.Seats(),
		Fish:      r.LiveFish(),
	}
}
