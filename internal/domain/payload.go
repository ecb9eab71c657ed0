package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Operation 复制操作类型
type Operation string

const (
	OpUpsertClient  Operation = "upsert_client"
	OpUpsertVehicle Operation = "upsert_vehicle"
)

var ErrEmptyEntityID = errors.New("payload entity id is required")

// SyncPayload 复制任务载荷（按操作类型区分的联合类型）
// 具体类型: *ClientPayload, *VehiclePayload, *UnknownPayload
type SyncPayload interface {
	Operation() Operation
	EntityID() string
	Owner() string
}

// ClientPayload upsert_client 的客户快照
type ClientPayload struct {
	ID           string    `json:"id"`
	SourceTenant string    `json:"source_tenant"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (*ClientPayload) Operation() Operation { return OpUpsertClient }
func (p *ClientPayload) EntityID() string   { return p.ID }
func (p *ClientPayload) Owner() string      { return p.SourceTenant }

// VehiclePayload upsert_vehicle 的车辆快照；ClientID 为所属客户的全局 id
type VehiclePayload struct {
	ID           string    `json:"id"`
	SourceTenant string    `json:"source_tenant"`
	ClientID     string    `json:"client_id"`
	Plate        string    `json:"plate"`
	Brand        string    `json:"brand,omitempty"`
	Model        string    `json:"model,omitempty"`
	Year         int       `json:"year,omitempty"`
	VIN          string    `json:"vin,omitempty"`
	KM           int       `json:"km,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (*VehiclePayload) Operation() Operation { return OpUpsertVehicle }
func (p *VehiclePayload) EntityID() string   { return p.ID }
func (p *VehiclePayload) Owner() string      { return p.SourceTenant }

// UnknownPayload 未知操作（新版本写入、旧版本 worker 读取），按已处理对待
type UnknownPayload struct {
	Op  Operation
	Raw json.RawMessage
}

func (p *UnknownPayload) Operation() Operation { return p.Op }
func (*UnknownPayload) EntityID() string       { return "" }
func (*UnknownPayload) Owner() string          { return "" }

// EncodePayload 序列化载荷，写入任务表
func EncodePayload(p SyncPayload) (json.RawMessage, error) {
	if p.EntityID() == "" {
		return nil, ErrEmptyEntityID
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", p.Operation(), err)
	}
	return b, nil
}

// DecodePayload 根据操作类型反序列化载荷
func DecodePayload(op Operation, raw json.RawMessage) (SyncPayload, error) {
	switch op {
	case OpUpsertClient:
		var p ClientPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", op, err)
		}
		if p.ID == "" {
			return nil, ErrEmptyEntityID
		}
		return &p, nil
	case OpUpsertVehicle:
		var p VehiclePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", op, err)
		}
		if p.ID == "" {
			return nil, ErrEmptyEntityID
		}
		return &p, nil
	default:
		return &UnknownPayload{Op: op, Raw: raw}, nil
	}
}
