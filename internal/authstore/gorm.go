package authstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// entry is one persisted key.
type entry struct {
	StoreKey  string `gorm:"primaryKey;type:varchar(64)"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (entry) TableName() string { return "auth_store" }

// GormBackend stores keys in a table; a local sqlite file by default.
type GormBackend struct{ db *gorm.DB }

// NewGormBackend migrates the table and returns the backend.
func NewGormBackend(db *gorm.DB) (*GormBackend, error) {
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, err
	}
	return &GormBackend{db: db}, nil
}

func (b *GormBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var e entry
	err := b.db.WithContext(ctx).Where("store_key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (b *GormBackend) Set(ctx context.Context, key, value string) error {
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry{StoreKey: key, Value: value}).Error
}

func (b *GormBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.db.WithContext(ctx).Where("store_key IN ?", keys).Delete(&entry{}).Error
}
