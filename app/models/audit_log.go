package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// AuditLogEntry is append-only. Actor name is copied at write time so that
// renaming a user does not rewrite history.
type AuditLogEntry struct {
	ID          string    `gorm:"type:char(36);primaryKey" json:"id"`
	ActorUserID *uint     `gorm:"index" json:"actor_user_id,omitempty"`
	ActorName   string    `gorm:"type:varchar(150)" json:"actor_name"`
	Action      string    `gorm:"type:varchar(64);not null;index" json:"action"`
	EntityType  string    `gorm:"type:varchar(64);not null;index:idx_audit_entity,priority:1" json:"entity_type"`
	EntityID    string    `gorm:"type:varchar(64);not null;index:idx_audit_entity,priority:2" json:"entity_id"`
	EntityName  string    `gorm:"type:varchar(200)" json:"entity_name"`
	Description string    `gorm:"type:text" json:"description"`
	Metadata    Metadata  `gorm:"serializer:json;type:text" json:"metadata"`
	SourceIP    *string   `gorm:"type:varchar(45)" json:"source_ip,omitempty"`
	UserAgent   *string   `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
}

// TableName keeps the table name short.
func (AuditLogEntry) TableName() string {
	return "audit_logs"
}

// Metadata is the key-value payload of an audit entry.
type Metadata map[string]MetaValue

type metaKind uint8

const (
	metaString metaKind = iota + 1
	metaNumber
	metaBool
)

// MetaValue holds exactly one of a string, a number or a boolean.
type MetaValue struct {
	kind metaKind
	s    string
	n    float64
	b    bool
}

func String(v string) MetaValue  { return MetaValue{kind: metaString, s: v} }
func Number(v float64) MetaValue { return MetaValue{kind: metaNumber, n: v} }
func Int(v int64) MetaValue      { return MetaValue{kind: metaNumber, n: float64(v)} }
func Bool(v bool) MetaValue      { return MetaValue{kind: metaBool, b: v} }

func (v MetaValue) AsString() (string, bool) { return v.s, v.kind == metaString }
func (v MetaValue) AsNumber() (float64, bool) { return v.n, v.kind == metaNumber }
func (v MetaValue) AsBool() (bool, bool)      { return v.b, v.kind == metaBool }

// Any returns the underlying value.
func (v MetaValue) Any() any {
	switch v.kind {
	case metaString:
		return v.s
	case metaNumber:
		return v.n
	case metaBool:
		return v.b
	default:
		return nil
	}
}

func (v MetaValue) MarshalJSON() ([]byte, error) {
	if v.kind == 0 {
		return nil, fmt.Errorf("metadata value is not set")
	}
	return json.Marshal(v.Any())
}

func (v *MetaValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = String(t)
	case float64:
		*v = Number(t)
	case bool:
		*v = Bool(t)
	default:
		return fmt.Errorf("metadata value must be a string, number or boolean, got %s", data)
	}
	return nil
}
