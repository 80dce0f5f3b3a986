// persistence/gorm_postgresql.go
package persistence

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wfunc/fishserver/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormPlayer{}, &models.GormWalletTransaction{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) GetPlayer(userID string) (*models.GormPlayer, error) {
	var player models.GormPlayer
	if err := p.db.Where("user_id = ?", userID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &player, nil
}

func (p *GormPostgreSQL) UpsertPlayer(player *models.GormPlayer) error {
	var existing models.GormPlayer
	err := p.db.Where("user_id = ?", player.UserID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p.db.Create(player).Error
	}
	if err != nil {
		return err
	}

	existing.Name = player.Name
	existing.Balance = player.Balance
	existing.TotalRecharge = player.TotalRecharge
	existing.VipLevel = player.VipLevel
	return p.db.Save(&existing).Error
}

func (p *GormPostgreSQL) SaveBalance(userID string, balance int64) error {
	result := p.db.Model(&models.GormPlayer{}).
		Where("user_id = ?", userID).
		Update("balance", balance)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (p *GormPostgreSQL) AdjustBalance(userID string, delta int64) (int64, error) {
	var balance int64
	err := p.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.GormPlayer{}).
			Where("user_id = ?", userID).
			Update("balance", gorm.Expr("balance + ?", delta))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRecordNotFound
		}

		var player models.GormPlayer
		if err := tx.Where("user_id = ?", userID).First(&player).Error; err != nil {
			return err
		}
		balance = player.Balance
		return nil
	})
	return balance, err
}

func (p *GormPostgreSQL) DebitIfRetains(userID string, amount, retain int64) (int64, error) {
	var balance int64
	err := p.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.GormPlayer{}).
			Where("user_id = ? AND balance - ? >= ?", userID, amount, retain).
			Update("balance", gorm.Expr("balance - ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var player models.GormPlayer
			if err := tx.Where("user_id = ?", userID).First(&player).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrRecordNotFound
				}
				return err
			}
			return ErrInsufficientBalance
		}

		var player models.GormPlayer
		if err := tx.Where("user_id = ?", userID).First(&player).Error; err != nil {
			return err
		}
		balance = player.Balance
		return nil
	})
	return balance, err
}

func (p *GormPostgreSQL) AddRecharge(userID string, amount int64) (*models.GormPlayer, error) {
	var player models.GormPlayer
	err := p.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.GormPlayer{}).
			Where("user_id = ?", userID).
			Update("total_recharge", gorm.Expr("total_recharge + ?", amount))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return tx.Where("user_id = ?", userID).First(&player).Error
	})
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (p *GormPostgreSQL) SetVipLevel(userID string, level int) error {
	result := p.db.Model(&models.GormPlayer{}).
		Where("user_id = ?", userID).
		Update("vip_level", level)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (p *GormPostgreSQL) GetTransaction(orderID string) (*models.GormWalletTransaction, error) {
	var t models.GormWalletTransaction
	if err := p.db.Where("order_id = ?", orderID).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (p *GormPostgreSQL) CreateTransaction(t *models.GormWalletTransaction) error {
	err := p.db.Create(t).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateOrder
	}
	return err
}

func (p *GormPostgreSQL) UpdateTransactionStatus(orderID, status string) error {
	result := p.db.Model(&models.GormWalletTransaction{}).
		Where("order_id = ?", orderID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
