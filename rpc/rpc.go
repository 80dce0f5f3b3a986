package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/fishserver/ledger"
	"github.com/wfunc/fishserver/logger"
	"github.com/wfunc/fishserver/room"
	"github.com/wfunc/fishserver/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

// NewServer creates a new RPC server. Services are registered separately
// via RegisterAdminService before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed.
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// AdminService exposes the operational read surface: player stats and live
// room summaries.
type AdminService struct {
	players *services.PlayerService
	rooms   *room.Manager
}

func NewAdminService(players *services.PlayerService, rooms *room.Manager) *AdminService {
	return &AdminService{players: players, rooms: rooms}
}

// RegisterAdminService registers the service with the net/rpc default
// server used by Start.
func RegisterAdminService(svc *AdminService) error {
	return rpc.Register(svc)
}

type GetPlayerArgs struct {
	UserID string
}

type GetPlayerReply struct {
	Stats *services.PlayerStats
}

func (s *AdminService) GetPlayerStats(args *GetPlayerArgs, reply *GetPlayerReply) error {
	stats, err := s.players.GetPlayerStats(args.UserID)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}

// RoomSummary is one live room's headline numbers.
type RoomSummary struct {
	RoomID    int64
	BaseScore float64
	Occupants int
	Fish      int
	Bullets   int
}

type ListRoomsArgs struct{}

type ListRoomsReply struct {
	Rooms []RoomSummary
}

func (s *AdminService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	for _, r := range s.rooms.Rooms() {
		reply.Rooms = append(reply.Rooms, RoomSummary{
			RoomID:    r.ID,
			BaseScore: ledger.ToDisplay(r.BaseScore),
			Occupants: r.OccupantCount(),
			Fish:      r.FishCount(),
			Bullets:   r.BulletCount(),
		})
	}
	return nil
}
