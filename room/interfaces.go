package room

// Broadcaster defines the interface for broadcasting messages to a room.
// Defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomID int64, event string, payload interface{}) error
	BroadcastToRoomExcept(roomID int64, exceptSessionID string, event string, payload interface{}) error
}
