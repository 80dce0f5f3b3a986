// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// PostgreSQL 驱动
	"github.com/lib/pq"

	"github.com/wfunc/fishserver/models"
)

// PostgreSQL is the raw database/sql implementation of Database. Kept
// alongside the GORM one for deployments that want plain SQL and a
// smaller dependency surface at runtime.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(db *sql.DB) error {
	if _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS players (
            id SERIAL PRIMARY KEY,
            user_id VARCHAR(64) UNIQUE NOT NULL,
            name VARCHAR(64) NOT NULL DEFAULT '',
            balance BIGINT NOT NULL DEFAULT 0,
            total_recharge BIGINT NOT NULL DEFAULT 0,
            vip_level INT NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMP
        )`); err != nil {
		return err
	}

	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS wallet_transactions (
            id SERIAL PRIMARY KEY,
            order_id VARCHAR(128) UNIQUE NOT NULL,
            user_id VARCHAR(64) NOT NULL,
            amount BIGINT NOT NULL,
            direction VARCHAR(16) NOT NULL,
            status VARCHAR(24) NOT NULL,
            signature VARCHAR(128) DEFAULT '',
            description VARCHAR(255) DEFAULT '',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMP
        )`)
	return err
}

func (p *PostgreSQL) GetPlayer(userID string) (*models.GormPlayer, error) {
	var player models.GormPlayer
	err := p.db.QueryRow(
		`SELECT id, user_id, name, balance, total_recharge, vip_level
         FROM players WHERE user_id = $1 AND deleted_at IS NULL`, userID).
		Scan(&player.ID, &player.UserID, &player.Name, &player.Balance,
			&player.TotalRecharge, &player.VipLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (p *PostgreSQL) UpsertPlayer(player *models.GormPlayer) error {
	_, err := p.db.Exec(`
        INSERT INTO players (user_id, name, balance, total_recharge, vip_level, updated_at)
        VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
        ON CONFLICT (user_id) DO UPDATE SET
            name = EXCLUDED.name,
            balance = EXCLUDED.balance,
            total_recharge = EXCLUDED.total_recharge,
            vip_level = EXCLUDED.vip_level,
            updated_at = CURRENT_TIMESTAMP`,
		player.UserID, player.Name, player.Balance, player.TotalRecharge, player.VipLevel)
	return err
}

func (p *PostgreSQL) SaveBalance(userID string, balance int64) error {
	result, err := p.db.Exec(
		`UPDATE players SET balance = $1, updated_at = CURRENT_TIMESTAMP WHERE user_id = $2`,
		balance, userID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (p *PostgreSQL) AdjustBalance(userID string, delta int64) (int64, error) {
	var balance int64
	err := p.db.QueryRow(`
        UPDATE players SET balance = balance + $1, updated_at = CURRENT_TIMESTAMP
        WHERE user_id = $2 RETURNING balance`, delta, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrRecordNotFound
	}
	return balance, err
}

func (p *PostgreSQL) DebitIfRetains(userID string, amount, retain int64) (int64, error) {
	var balance int64
	err := p.db.QueryRow(`
        UPDATE players SET balance = balance - $1, updated_at = CURRENT_TIMESTAMP
        WHERE user_id = $2 AND balance - $1 >= $3 RETURNING balance`,
		amount, userID, retain).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing player from a floor rejection.
		if _, getErr := p.GetPlayer(userID); getErr != nil {
			return 0, getErr
		}
		return 0, ErrInsufficientBalance
	}
	return balance, err
}

func (p *PostgreSQL) AddRecharge(userID string, amount int64) (*models.GormPlayer, error) {
	_, err := p.db.Exec(`
        UPDATE players SET total_recharge = total_recharge + $1, updated_at = CURRENT_TIMESTAMP
        WHERE user_id = $2`, amount, userID)
	if err != nil {
		return nil, err
	}
	return p.GetPlayer(userID)
}

func (p *PostgreSQL) SetVipLevel(userID string, level int) error {
	result, err := p.db.Exec(
		`UPDATE players SET vip_level = $1, updated_at = CURRENT_TIMESTAMP WHERE user_id = $2`,
		level, userID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (p *PostgreSQL) GetTransaction(orderID string) (*models.GormWalletTransaction, error) {
	var t models.GormWalletTransaction
	err := p.db.QueryRow(`
        SELECT id, order_id, user_id, amount, direction, status, signature, description
        FROM wallet_transactions WHERE order_id = $1 AND deleted_at IS NULL`, orderID).
		Scan(&t.ID, &t.OrderID, &t.UserID, &t.Amount, &t.Direction,
			&t.Status, &t.Signature, &t.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (p *PostgreSQL) CreateTransaction(t *models.GormWalletTransaction) error {
	_, err := p.db.Exec(`
        INSERT INTO wallet_transactions (order_id, user_id, amount, direction, status, signature, description)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.OrderID, t.UserID, t.Amount, t.Direction, t.Status, t.Signature, t.Description)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return ErrDuplicateOrder
	}
	return err
}

func (p *PostgreSQL) UpdateTransactionStatus(orderID, status string) error {
	result, err := p.db.Exec(`
        UPDATE wallet_transactions SET status = $1, updated_at = CURRENT_TIMESTAMP
        WHERE order_id = $2`, status, orderID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
