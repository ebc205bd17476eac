package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	datamodel "github.com/frahmantamala/wallet-payments/internal/core/datamodel/pendingorder"
	"github.com/frahmantamala/wallet-payments/internal/pendingorder"
)

type KV struct {
	db *gorm.DB
}

func NewKV(db *gorm.DB) pendingorder.KV {
	return &KV{db: db}
}

func (r *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry datamodel.Entry
	err := r.db.WithContext(ctx).Where("slot_key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(entry.Payload), true, nil
}

func (r *KV) Set(ctx context.Context, key string, value []byte) error {
	entry := datamodel.Entry{SlotKey: key, Payload: string(value)}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&entry).Error
}

func (r *KV) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("slot_key = ?", key).Delete(&datamodel.Entry{}).Error
}

func (r *KV) DeleteIf(ctx context.Context, key string, expected []byte) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("slot_key = ? AND payload = ?", key, string(expected)).
		Delete(&datamodel.Entry{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
