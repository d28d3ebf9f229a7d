package database

import (
	"fmt"
	"log"
	"sort"
	"time"

	"gorm.io/gorm"
)

// Migration is one ordered, idempotent schema step. Version strings sort
// lexically (timestamp prefix), which defines the apply order.
type Migration struct {
	Version string
	Up      func(db *gorm.DB) error
}

var registry []Migration

// Register adds a migration to the registry. Called from init() in the
// migrations package.
func Register(version string, up func(db *gorm.DB) error) {
	registry = append(registry, Migration{Version: version, Up: up})
}

type schemaMigration struct {
	Version   string `gorm:"type:varchar(128);primaryKey"`
	AppliedAt time.Time
}

func (schemaMigration) TableName() string { return "schema_migrations" }

// Migrate applies every registered migration that has not been recorded yet,
// in version order, each inside its own transaction.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schemaMigration{}); err != nil {
		return fmt.Errorf("migrate: init schema_migrations: %w", err)
	}

	sort.Slice(registry, func(i, j int) bool { return registry[i].Version < registry[j].Version })

	for _, m := range registry {
		var count int64
		db.Model(&schemaMigration{}).Where("version = ?", m.Version).Count(&count)
		if count > 0 {
			continue
		}

		mig := m
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := mig.Up(tx); err != nil {
				return err
			}
			return tx.Create(&schemaMigration{Version: mig.Version, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			return fmt.Errorf("migrate: %s: %w", m.Version, err)
		}
		log.Printf("migrated: %s", m.Version)
	}
	return nil
}
