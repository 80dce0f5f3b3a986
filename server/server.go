package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/wfunc/fishserver/broadcast"
	"github.com/wfunc/fishserver/config"
	"github.com/wfunc/fishserver/game"
	"github.com/wfunc/fishserver/ledger"
	"github.com/wfunc/fishserver/logger"
	"github.com/wfunc/fishserver/monitor"
	"github.com/wfunc/fishserver/network"
	"github.com/wfunc/fishserver/persistence"
	"github.com/wfunc/fishserver/room"
	fishserver_rpc "github.com/wfunc/fishserver/rpc"
	"github.com/wfunc/fishserver/services"
	"github.com/wfunc/fishserver/session"
	"github.com/wfunc/fishserver/settlement"
	"github.com/wfunc/fishserver/timer"
)

const heartbeatInterval = 30 * time.Second

// Inbound message budget per connection. Fire spam beyond this is dropped
// before it reaches the simulation.
const (
	msgRatePerSecond = 40
	msgRateBurst     = 80
)

type GameServer struct {
	cfg            *config.Config
	upgrader       websocket.Upgrader
	timers         *timer.Manager
	roomManager    *room.Manager
	sessionManager *session.Manager
	playerService  *services.PlayerService
	broadcaster    broadcast.Broadcaster
	handler        *game.Handler
	bridge         *settlement.Bridge
	rpcServer      *fishserver_rpc.Server
	monitor        *monitor.Monitor
	cron           *cron.Cron
	httpServer     *http.Server
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database) *GameServer {
	s := &GameServer{
		cfg:            cfg,
		timers:         timer.NewManager(),
		sessionManager: session.NewManager(),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	s.roomManager = room.NewManager(s.timers, cfg.Game.MaxSeats)
	s.playerService = services.NewPlayerService(db, ledger.ToScaled(cfg.Settlement.WelcomeBonus))

	// 初始化广播器
	b := broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)
	s.broadcaster = b
	s.roomManager.SetBroadcaster(b)

	s.handler = game.NewHandler(s.roomManager, s.sessionManager, s.broadcaster, s.playerService)

	platform := settlement.NewPlatformClient(cfg.Settlement.PlatformURL, cfg.Settlement.APIKey, cfg.Settlement.Secret)
	s.bridge = settlement.NewBridge(db, s.roomManager, s.broadcaster, platform,
		cfg.Settlement.Secret, ledger.ToScaled(cfg.Settlement.MinRetainedBalance))

	s.monitor = monitor.NewMonitor("fishserver")
	s.handler.SetMonitor(s.monitor)
	s.bridge.SetMonitor(s.monitor)
	s.roomManager.SetSpawnObserver(s.monitor.AddFishSpawned)

	// 初始化RPC服务器
	rpcServer, err := fishserver_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	// 注册RPC服务
	adminService := fishserver_rpc.NewAdminService(s.playerService, s.roomManager)
	if err := fishserver_rpc.RegisterAdminService(adminService); err != nil {
		logger.Log.Fatalf("Failed to register RPC service: %v", err)
	}

	// 定时落盘：玩家在线分数
	s.cron = cron.New()
	flushEvery := time.Duration(cfg.Game.FlushIntervalMS) * time.Millisecond
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", flushEvery), s.handler.FlushResidentScores); err != nil {
		logger.Log.Fatalf("Failed to schedule score flush: %v", err)
	}

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()
	s.monitor.StartServer(s.cfg.Server.MetricsAddress)
	s.cron.Start()

	// Best effort: tag settlement rows with the catalog title.
	go s.resolveGameTitle()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	s.bridge.RegisterRoutes(mux)

	s.httpServer = &http.Server{
		Addr:    s.cfg.Server.HTTPAddress,
		Handler: mux,
	}

	logger.Log.Infof("Game server listening on %s", s.cfg.Server.HTTPAddress)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *GameServer) resolveGameTitle() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	platform := settlement.NewPlatformClient(s.cfg.Settlement.PlatformURL, s.cfg.Settlement.APIKey, s.cfg.Settlement.Secret)
	title, err := platform.GetGameTitle(ctx, "fish")
	if err != nil {
		logger.Log.Debugw("game title lookup failed, keeping default description", "error", err)
		return
	}
	s.bridge.SetDescription(title)
}

// Shutdown drains everything in dependency order: stop accepting, flush
// resident scores, then tear the schedulers down.
func (s *GameServer) Shutdown(ctx context.Context) {
	close(s.shutdownChan)

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logger.Log.Warnf("HTTP shutdown: %v", err)
		}
	}
	s.rpcServer.Stop()

	cronCtx := s.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}

	s.handler.FlushResidentScores()
	s.roomManager.Close()
	s.timers.Stop()
	logger.Log.Info("Game server stopped")
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	go s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	wsConn.SetHeartbeat(heartbeatInterval)

	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.handler.HandleDisconnect(sess)
		s.sessionManager.Remove(sess.GetID())
		wsConn.Close()
	}()

	limiter := rate.NewLimiter(rate.Limit(msgRatePerSecond), msgRateBurst)

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			msg, err := wsConn.ReadMessage()
			if err != nil {
				return
			}
			if !limiter.Allow() {
				logger.Log.Warnw("rate limit exceeded, dropping message",
					"session", sess.GetID(), "event", msg.Event)
				continue
			}
			s.handler.HandleMessage(sess, msg)
		}
	}
}
