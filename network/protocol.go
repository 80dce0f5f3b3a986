package network

// Wire event names. These are the stable protocol surface shared with the
// client build; renaming any of them breaks deployed clients.
const (
	EvtLogin         = "login"
	EvtLoginResult   = "login_result"
	EvtLoginFinished = "login_finished"
	EvtReady         = "ready"

	EvtFire      = "user_fire"
	EvtFireReply = "user_fire_Reply"

	EvtCatch      = "catch_fish"
	EvtCatchReply = "catch_fish_reply"
	EvtLaserCatch = "laser_catch_fish"

	EvtChangeCannon      = "user_change_cannon"
	EvtChangeCannonReply = "user_change_cannon_reply"

	EvtLockFish      = "user_lock_fish"
	EvtLockFishReply = "lock_fish_reply"

	EvtFrozen      = "user_frozen"
	EvtFrozenReply = "user_frozen_reply"

	EvtBuildFish = "build_fish_reply"

	EvtExit       = "exit"
	EvtExitNotify = "exit_notify_push"

	EvtNewUserComes = "new_user_comes_push"
	EvtGameSync     = "game_sync_push"

	EvtPing = "game_ping"
	EvtPong = "game_pong"
)
