// network/messages.go
package network

import (
	"github.com/wfunc/fishserver/models"
)

// Typed payloads, one schema per wire event. Clients historically sent
// loosely-typed JSON; decoding into these structs drops anything the
// schema does not name.

type LoginRequest struct {
	Token string `json:"token"`
	// RoomID rejoins a specific room; zero means matchmake by BaseParam.
	RoomID    int64 `json:"roomId"`
	BaseParam int64 `json:"baseParam"`
}

type RoomConf struct {
	Type          string `json:"type"`
	MaxSeats      int    `json:"maxSeats"`
	GameBaseScore int64  `json:"gamebasescore"`
}

type LoginReply struct {
	ErrCode int                   `json:"errcode"`
	ErrMsg  string                `json:"errmsg,omitempty"`
	RoomID  int64                 `json:"roomId,omitempty"`
	Conf    *RoomConf             `json:"conf,omitempty"`
	Seats   []models.SeatSnapshot `json:"seats,omitempty"`
}

type FireRequest struct {
	CannonKind int     `json:"cannonKind"`
	Angle      float64 `json:"angle"`
}

type FireReply struct {
	BulletID   int64   `json:"bulletId"`
	UserID     string  `json:"userId"`
	SeatIndex  int     `json:"seatIndex"`
	CannonKind int     `json:"cannonKind"`
	Angle      float64 `json:"angle"`
	Score      int64   `json:"score"`
	Power      int64   `json:"power"`
}

type CatchRequest struct {
	BulletID int64   `json:"bulletId"`
	FishIDs  []int64 `json:"fishIds"`
}

type CaughtFish struct {
	FishID   int64 `json:"fishId"`
	FishKind int   `json:"fishKind"`
	AddScore int64 `json:"addScore"`
}

type CatchReply struct {
	ErrCode   int          `json:"errcode"`
	ErrMsg    string       `json:"errmsg,omitempty"`
	UserID    string       `json:"userId"`
	SeatIndex int          `json:"seatIndex"`
	BulletID  int64        `json:"bulletId"`
	Caught    []CaughtFish `json:"caught"`
	Score     int64        `json:"score"`
	Power     int64        `json:"power"`
}

type LaserCatchRequest struct {
	FishIDs []int64 `json:"fishIds"`
}

type ChangeCannonRequest struct {
	CannonKind int `json:"cannonKind"`
}

type ChangeCannonReply struct {
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg,omitempty"`
	UserID     string `json:"userId"`
	SeatIndex  int    `json:"seatIndex"`
	CannonKind int    `json:"cannonKind"`
}

type LockFishRequest struct {
	FishID int64 `json:"fishId"`
}

type LockFishReply struct {
	UserID    string `json:"userId"`
	SeatIndex int    `json:"seatIndex"`
	FishID    int64  `json:"fishId"`
}

type FrozenReply struct {
	UserID      string `json:"userId"`
	FrozenUntil int64  `json:"frozenUntil"`
}

type ExitNotify struct {
	UserID    string `json:"userId"`
	SeatIndex int    `json:"seatIndex"`
}

// GameSync is the full room snapshot pushed on ready and after settlement
// events touching a resident player.
type GameSync struct {
	RoomID    int64                 `json:"roomId"`
	BaseScore int64                 `json:"baseScore"`
	Seats     []models.SeatSnapshot `json:"seats"`
	Fish      []*models.Fish        `json:"fish"`
}
