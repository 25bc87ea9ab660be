package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store is the read-only tenant projection used to label alerts.
type Store struct {
	ID   uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name string    `gorm:"column:name;not null"`
}

func (s *Store) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// Customer is the read-only customer projection used to label alerts.
type Customer struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	StoreID uuid.UUID `gorm:"column:store_id;type:uuid;not null"`
	Name    string    `gorm:"column:name;not null"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
