package domain

import "time"

// Client 租户库中的客户
// UUID 为全局 id（老数据可能为空），SourceTenant 为权威所有者
type Client struct {
	LocalID      int64     `json:"local_id"`
	UUID         string    `json:"id"`
	SourceTenant string    `json:"source_tenant"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToPayload 生成 upsert_client 快照
func (c *Client) ToPayload() *ClientPayload {
	return &ClientPayload{
		ID:           c.UUID,
		SourceTenant: c.SourceTenant,
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		Address:      c.Address,
		Notes:        c.Notes,
		CreatedAt:    c.CreatedAt,
	}
}

// Vehicle 租户库中的车辆
type Vehicle struct {
	LocalID       int64     `json:"local_id"`
	UUID          string    `json:"id"`
	SourceTenant  string    `json:"source_tenant"`
	ClientLocalID int64     `json:"client_local_id"`
	Plate         string    `json:"plate"`
	Brand         string    `json:"brand,omitempty"`
	Model         string    `json:"model,omitempty"`
	Year          int       `json:"year,omitempty"`
	VIN           string    `json:"vin,omitempty"`
	KM            int       `json:"km,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToPayload 生成 upsert_vehicle 快照；clientID 为所属客户的全局 id
func (v *Vehicle) ToPayload(clientID string) *VehiclePayload {
	return &VehiclePayload{
		ID:           v.UUID,
		SourceTenant: v.SourceTenant,
		ClientID:     clientID,
		Plate:        v.Plate,
		Brand:        v.Brand,
		Model:        v.Model,
		Year:         v.Year,
		VIN:          v.VIN,
		KM:           v.KM,
		Notes:        v.Notes,
		CreatedAt:    v.CreatedAt,
	}
}

// OrderSummary 订单列表行（统一视图）
type OrderSummary struct {
	LocalID       int64     `json:"local_id"`
	UUID          string    `json:"id,omitempty"`
	TrackingToken string    `json:"tracking_token,omitempty"`
	ClientName    string    `json:"client_name"`
	VehiclePlate  string    `json:"vehicle_plate,omitempty"`
	Status        string    `json:"status"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// OrderItem 订单明细；价格字段可被可见级别置空
type OrderItem struct {
	Description string   `json:"description"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Subtotal    *float64 `json:"subtotal"`
}

// OrderHistory 订单状态历史
type OrderHistory struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderDetail 订单详情（按追踪码查询）
type OrderDetail struct {
	Order   OrderSummary   `json:"order"`
	Total   *float64       `json:"total"`
	Items   []OrderItem    `json:"items"`
	History []OrderHistory `json:"history"`
}

// Appointment 预约
type Appointment struct {
	LocalID      int64     `json:"local_id"`
	ClientName   string    `json:"client_name"`
	VehiclePlate string    `json:"vehicle_plate,omitempty"`
	ScheduledAt  time.Time `json:"scheduled_at"`
	Status       string    `json:"status"`
	Notes        string    `json:"notes,omitempty"`
}

// ClientOrderCount 客户目录行：客户 + 本租户订单数
type ClientOrderCount struct {
	Client     Client `json:"client"`
	OrderCount int    `json:"order_count"`
}

// TenantStats 单租户报表数据
type TenantStats struct {
	OrderCount  int     `json:"order_count"`
	ClientCount int     `json:"client_count"`
	Revenue     float64 `json:"revenue"`
}
