package pendingorder

import "time"

// Entry is one row of the key/value table backing the pending-order slots.
type Entry struct {
	SlotKey   string    `gorm:"column:slot_key;primaryKey"`
	Payload   string    `gorm:"column:payload;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Entry) TableName() string {
	return "pending_orders"
}
