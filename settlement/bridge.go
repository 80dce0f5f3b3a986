// Package settlement bridges the game wallet and the platform wallet.
// Both directions key idempotency on order_id: a retry either returns the
// cached terminal result or resumes the single in-flight attempt, never
// double-applies.
package settlement

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wfunc/fishserver/broadcast"
	"github.com/wfunc/fishserver/ledger"
	"github.com/wfunc/fishserver/logger"
	"github.com/wfunc/fishserver/models"
	"github.com/wfunc/fishserver/monitor"
	"github.com/wfunc/fishserver/network"
	"github.com/wfunc/fishserver/persistence"
	"github.com/wfunc/fishserver/room"
)

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrUnknownOrder     = errors.New("order not found")
	ErrOrderMismatch    = errors.New("order does not match signed request")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrRetainFloor      = errors.New("balance after withdraw below retained minimum")
)

// Bridge implements both settlement flows on top of the store and the live
// room state. The in-memory score is authoritative while a user is
// resident; the persisted row takes over otherwise.
type Bridge struct {
	db          persistence.Database
	rooms       *room.Manager
	broadcaster broadcast.Broadcaster
	platform    Platform
	secret      string
	// minRetain is the scaled balance a withdraw must leave behind.
	minRetain   int64
	description string
	monitor     *monitor.Monitor
}

func NewBridge(db persistence.Database, rooms *room.Manager, b broadcast.Broadcaster, platform Platform, secret string, minRetain int64) *Bridge {
	return &Bridge{
		db:          db,
		rooms:       rooms,
		broadcaster: b,
		platform:    platform,
		secret:      secret,
		minRetain:   minRetain,
		description: "Settlement from Fish Master",
	}
}

// SetDescription overrides the ledger-row description, normally the game
// title fetched from the platform catalog.
func (b *Bridge) SetDescription(desc string) {
	if desc != "" {
		b.description = "Settlement from " + desc
	}
}

// SetMonitor wires the metrics sink. Optional.
func (b *Bridge) SetMonitor(m *monitor.Monitor) {
	b.monitor = m
}

type DepositRequest struct {
	OrderID   string  `json:"order_id"`
	UserID    string  `json:"user_id"`
	Amount    float64 `json:"amount"`
	Timestamp int64   `json:"timestamp"`
	Signature string  `json:"signature"`
}

type DepositResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	// Balance is the scaled balance after the credit, from whichever side
	// is authoritative.
	Balance int64 `json:"balance"`
}

// Deposit receives a platform-side debit. The platform writes the
// PENDING_GAME row into the shared ledger before calling, so an unknown
// order is a hard reject, not a lazy insert.
func (b *Bridge) Deposit(ctx context.Context, req *DepositRequest) (*DepositResult, error) {
	if !Verify(req.OrderID, req.UserID, req.Amount, req.Timestamp, b.secret, req.Signature) {
		b.countSettlement(models.DirectionDeposit, "rejected_signature")
		return nil, ErrInvalidSignature
	}

	amount := ledger.ToScaled(req.Amount)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	tx, err := b.db.GetTransaction(req.OrderID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, ErrUnknownOrder
	}
	if err != nil {
		return nil, err
	}
	// The signature only proves the payload is genuine; the payload must
	// also be the one the row was created for, or a signed withdraw order
	// could be replayed as a credit.
	if tx.UserID != req.UserID || tx.Direction != models.DirectionDeposit || tx.Amount != amount {
		b.countSettlement(models.DirectionDeposit, "rejected_mismatch")
		return nil, ErrOrderMismatch
	}
	if models.TerminalStatus(tx.Status) {
		// Idempotent replay: answer from the ledger, change nothing.
		return &DepositResult{OrderID: req.OrderID, Status: tx.Status}, nil
	}

	// Credit whichever side owns the balance at this instant. While the
	// user is resident the live score takes the credit and the flush or
	// the exit persists it; writing the store as well would let an exit
	// racing this call overwrite one side with the other. The store is
	// adjusted directly only when no room holds the user.
	var (
		balance  int64
		resident *room.Room
	)
	if r, ok := b.residentRoom(req.UserID); ok {
		if score, credited := r.Credit(req.UserID, amount); credited {
			balance = score
			resident = r
		}
	}
	if resident == nil {
		balance, err = b.db.AdjustBalance(req.UserID, amount)
		if err != nil {
			// Nothing applied; the wallet side compensates on this failure.
			return nil, err
		}
	}
	if err := b.db.UpdateTransactionStatus(req.OrderID, models.StatusCompleted); err != nil {
		// Roll the credit back before surfacing: the row must never read
		// PENDING while the money already moved.
		b.rollbackCredit(req.OrderID, req.UserID, amount, resident)
		return nil, err
	}

	if resident != nil {
		b.pushSync(req.UserID, resident)
	}

	b.countSettlement(models.DirectionDeposit, models.StatusCompleted)
	logger.Log.Infow("deposit completed", "order_id", req.OrderID, "user_id", req.UserID, "amount", amount)
	return &DepositResult{OrderID: req.OrderID, Status: models.StatusCompleted, Balance: balance}, nil
}

type WithdrawRequest struct {
	// OrderID resumes a prior attempt; empty generates a fresh one.
	OrderID string  `json:"order_id"`
	UserID  string  `json:"user_id"`
	Amount  float64 `json:"amount"`
}

type WithdrawResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Balance int64  `json:"balance"`
}

// Withdraw runs the outbound saga: optimistic debit, PENDING_PLATFORM row,
// signed platform call, then COMPLETED — or compensating re-credit and
// FAILED. A retry finding the pending row resumes without a second debit.
func (b *Bridge) Withdraw(ctx context.Context, req *WithdrawRequest) (*WithdrawResult, error) {
	amount := ledger.ToScaled(req.Amount)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	orderID := req.OrderID
	if orderID == "" {
		orderID = "W_" + uuid.NewString()
	}

	if tx, err := b.db.GetTransaction(orderID); err == nil {
		if models.TerminalStatus(tx.Status) {
			return &WithdrawResult{OrderID: orderID, Status: tx.Status}, nil
		}
		if tx.Status == models.StatusPendingPlatform {
			// The debit already happened on the first attempt.
			return b.settleWithdraw(ctx, orderID, tx.UserID, tx.Amount)
		}
	} else if !errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, err
	}

	if err := b.debit(req.UserID, amount); err != nil {
		b.countSettlement(models.DirectionWithdraw, "rejected_balance")
		return nil, err
	}

	tx := &models.GormWalletTransaction{
		OrderID:     orderID,
		UserID:      req.UserID,
		Amount:      amount,
		Direction:   models.DirectionWithdraw,
		Status:      models.StatusPendingPlatform,
		Description: b.description,
	}
	if err := b.db.CreateTransaction(tx); err != nil {
		b.refund(req.UserID, amount)
		return nil, err
	}

	return b.settleWithdraw(ctx, orderID, req.UserID, amount)
}

// settleWithdraw performs the platform call and drives the row to its
// terminal state.
func (b *Bridge) settleWithdraw(ctx context.Context, orderID, userID string, amount int64) (*WithdrawResult, error) {
	if err := b.platform.Withdraw(ctx, orderID, userID, ledger.ToDisplay(amount)); err != nil {
		b.refund(userID, amount)
		if dbErr := b.db.UpdateTransactionStatus(orderID, models.StatusFailed); dbErr != nil {
			logger.Log.Errorw("withdraw fail-mark failed", "order_id", orderID, "error", dbErr)
		}
		b.countSettlement(models.DirectionWithdraw, models.StatusFailed)
		logger.Log.Warnw("withdraw compensated", "order_id", orderID, "user_id", userID, "amount", amount, "error", err)
		return &WithdrawResult{OrderID: orderID, Status: models.StatusFailed}, err
	}

	if err := b.db.UpdateTransactionStatus(orderID, models.StatusCompleted); err != nil {
		logger.Log.Errorw("withdraw complete-mark failed", "order_id", orderID, "error", err)
	}

	balance, source, _ := b.currentBalance(userID)
	if source == "memory" {
		if r, resident := b.residentRoom(userID); resident {
			b.pushSync(userID, r)
		}
	}

	b.countSettlement(models.DirectionWithdraw, models.StatusCompleted)
	logger.Log.Infow("withdraw completed", "order_id", orderID, "user_id", userID, "amount", amount)
	return &WithdrawResult{OrderID: orderID, Status: models.StatusCompleted, Balance: balance}, nil
}

// debit takes the amount from the authoritative side, enforcing the
// retained-balance floor, and mirrors a resident debit into the store.
func (b *Bridge) debit(userID string, amount int64) error {
	if r, resident := b.residentRoom(userID); resident {
		score, err := r.DebitIfRetains(userID, amount, b.minRetain)
		if err != nil {
			return ErrRetainFloor
		}
		if err := b.db.SaveBalance(userID, score); err != nil {
			logger.Log.Errorw("withdraw memory-debit mirror failed", "user_id", userID, "error", err)
		}
		return nil
	}

	_, err := b.db.DebitIfRetains(userID, amount, b.minRetain)
	if errors.Is(err, persistence.ErrInsufficientBalance) {
		return ErrRetainFloor
	}
	return err
}

// rollbackCredit undoes a deposit credit that could not be recorded as
// terminal. The memory side is preferred when the credit landed there;
// if the occupant left in between, the exit already persisted the
// credited score, so the store takes the reversal.
func (b *Bridge) rollbackCredit(orderID, userID string, amount int64, resident *room.Room) {
	if resident != nil {
		if _, ok := resident.Credit(userID, -amount); ok {
			return
		}
	}
	if _, err := b.db.AdjustBalance(userID, -amount); err != nil {
		logger.Log.Errorw("deposit rollback failed", "order_id", orderID, "error", err)
	}
}

// refund is the compensating credit for a failed withdraw.
func (b *Bridge) refund(userID string, amount int64) {
	if r, resident := b.residentRoom(userID); resident {
		if score, ok := r.Credit(userID, amount); ok {
			if err := b.db.SaveBalance(userID, score); err != nil {
				logger.Log.Errorw("refund mirror failed", "user_id", userID, "error", err)
			}
			return
		}
	}
	if _, err := b.db.AdjustBalance(userID, amount); err != nil {
		logger.Log.Errorw("refund failed", "user_id", userID, "amount", amount, "error", err)
	}
}

type CheckResult struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Amount  int64  `json:"amount"`
}

// Check returns a ledger row's state for reconciliation.
func (b *Bridge) Check(orderID string) (*CheckResult, error) {
	tx, err := b.db.GetTransaction(orderID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, ErrUnknownOrder
	}
	if err != nil {
		return nil, err
	}
	return &CheckResult{OrderID: tx.OrderID, Status: tx.Status, Amount: tx.Amount}, nil
}

type BalanceInfo struct {
	UserID  string  `json:"user_id"`
	Balance float64 `json:"balance"`
	// Source tags freshness: "memory" while resident, "database" otherwise.
	Source string `json:"source"`
}

// Balance reports the authoritative balance and where it came from.
func (b *Bridge) Balance(userID string) (*BalanceInfo, error) {
	balance, source, err := b.currentBalance(userID)
	if err != nil {
		return nil, err
	}
	return &BalanceInfo{UserID: userID, Balance: ledger.ToDisplay(balance), Source: source}, nil
}

func (b *Bridge) currentBalance(userID string) (int64, string, error) {
	if r, resident := b.residentRoom(userID); resident {
		if score, ok := r.Score(userID); ok {
			return score, "memory", nil
		}
	}
	player, err := b.db.GetPlayer(userID)
	if err != nil {
		return 0, "", err
	}
	return player.Balance, "database", nil
}

// residentRoom finds the room currently holding the user's live score.
func (b *Bridge) residentRoom(userID string) (*room.Room, bool) {
	for _, r := range b.rooms.Rooms() {
		if _, ok := r.GetOccupant(userID); ok {
			return r, true
		}
	}
	return nil, false
}

// pushSync refreshes every live connection of the user with the room
// snapshot so a settled balance shows up without a relog.
func (b *Bridge) pushSync(userID string, r *room.Room) {
	if b.broadcaster == nil {
		return
	}
	_ = b.broadcaster.BroadcastToUser(userID, network.EvtGameSync, &network.GameSync{
		RoomID:    r.ID,
		BaseScore: r.BaseScore,
		Seats:     r.Seats(),
		Fish:      r.LiveFish(),
	})
}

func (b *Bridge) countSettlement(direction, status string) {
	if b.monitor != nil {
		b.monitor.IncSettlement(direction, status)
	}
}
