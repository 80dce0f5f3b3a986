// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/fishserver/room"

	"github.com/wfunc/fishserver/session"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomID int64, event string, payload interface{}) error
	BroadcastToRoomExcept(roomID int64, exceptSessionID string, event string, payload interface{}) error
	BroadcastToUser(userID string, event string, payload interface{}) error
}

// RoomBroadcaster delivers room-scoped pushes: message volume stays
// O(occupants), never O(all connections).
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
}

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomID int64, event string, payload interface{}) error {
	return b.BroadcastToRoomExcept(roomID, "", event, payload)
}

func (b *RoomBroadcaster) BroadcastToRoomExcept(roomID int64, exceptSessionID string, event string, payload interface{}) error {
	r, exists := b.roomManager.GetRoom(roomID)
	if !exists {
		return ErrRoomNotFound
	}

	for _, sid := range r.SessionIDs() {
		if sid == exceptSessionID {
			continue
		}
		s, ok := b.sessionManager.Get(sid)
		if !ok {
			continue
		}
		if err := s.Send(event, payload); err != nil {
			// 发送失败的连接由读循环负责清理
			continue
		}
	}

	return nil
}

func (b *RoomBroadcaster) BroadcastToUser(userID string, event string, payload interface{}) error {
	for _, s := range b.sessionManager.GetByUserID(userID) {
		if err := s.Send(event, payload); err != nil {
			continue
		}
	}
	return nil
}
