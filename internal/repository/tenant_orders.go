package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

// NewOrder 本地新建订单参数
type NewOrder struct {
	UUID           string
	TrackingToken  string
	ClientLocalID  int64
	VehicleLocalID int64 // 0 = 无车辆
	Status         string
	Description    string
	Items          []NewOrderItem
	CreatedAt      time.Time
}

type NewOrderItem struct {
	Description string
	Quantity    float64
	UnitPrice   float64
}

// CreateOrder 新建订单及明细，total 为明细小计之和
func (r *TenantRepo) CreateOrder(ctx context.Context, o *NewOrder) (int64, error) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.Status == "" {
		o.Status = "pending"
	}
	var total float64
	for _, it := range o.Items {
		total += it.Quantity * it.UnitPrice
	}
	var vehicleID sql.NullInt64
	if o.VehicleLocalID > 0 {
		vehicleID = sql.NullInt64{Int64: o.VehicleLocalID, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (uuid, tracking_token, client_id, vehicle_id, status, description, total, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		nullString(o.UUID), nullString(o.TrackingToken), o.ClientLocalID, vehicleID, o.Status, o.Description, total, o.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}
	orderID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get order id: %w", err)
	}

	for _, it := range o.Items {
		if _, err := r.db.ExecContext(ctx,
			`INSERT INTO order_items (order_id, description, quantity, unit_price, subtotal) VALUES ($1, $2, $3, $4, $5)`,
			orderID, it.Description, it.Quantity, it.UnitPrice, it.Quantity*it.UnitPrice,
		); err != nil {
			return 0, fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	if err := r.AddOrderHistory(ctx, orderID, o.Status, "", o.CreatedAt); err != nil {
		return 0, err
	}
	return orderID, nil
}

// AddOrderHistory 追加订单状态历史
func (r *TenantRepo) AddOrderHistory(ctx context.Context, orderID int64, status, note string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO order_history (order_id, status, note, created_at) VALUES ($1, $2, $3, $4)`,
		orderID, status, note, at,
	); err != nil {
		return fmt.Errorf("failed to insert order history: %w", err)
	}
	return nil
}

// CreateAppointment 新建预约
func (r *TenantRepo) CreateAppointment(ctx context.Context, clientLocalID, vehicleLocalID int64, at time.Time, notes string) (int64, error) {
	var vehicleID sql.NullInt64
	if vehicleLocalID > 0 {
		vehicleID = sql.NullInt64{Int64: vehicleLocalID, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO appointments (client_id, vehicle_id, scheduled_at, notes) VALUES ($1, $2, $3, $4)`,
		clientLocalID, vehicleID, at, notes,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert appointment: %w", err)
	}
	return res.LastInsertId()
}

// ListRecentOrders 最近的订单（本租户上限 limit）
func (r *TenantRepo) ListRecentOrders(ctx context.Context, limit int) ([]domain.OrderSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT o.id, o.uuid, o.tracking_token, c.name, COALESCE(v.plate, ''), o.status, o.description, o.created_at
		FROM orders o
		INNER JOIN clients c ON c.id = o.client_id
		LEFT JOIN vehicles v ON v.id = o.vehicle_id
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.OrderSummary{}
	for rows.Next() {
		var o domain.OrderSummary
		var uuid, token sql.NullString
		if err := rows.Scan(&o.LocalID, &uuid, &token, &o.ClientName, &o.VehiclePlate, &o.Status, &o.Description, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.UUID = uuid.String
		o.TrackingToken = token.String
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListAppointments from 之后的预约，按时间升序
func (r *TenantRepo) ListAppointments(ctx context.Context, from time.Time, limit int) ([]domain.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, c.name, COALESCE(v.plate, ''), a.scheduled_at, a.status, a.notes
		FROM appointments a
		INNER JOIN clients c ON c.id = a.client_id
		LEFT JOIN vehicles v ON v.id = a.vehicle_id
		WHERE a.scheduled_at >= $1
		ORDER BY a.scheduled_at ASC
		LIMIT $2`, from.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	items := []domain.Appointment{}
	for rows.Next() {
		var a domain.Appointment
		if err := rows.Scan(&a.LocalID, &a.ClientName, &a.VehiclePlate, &a.ScheduledAt, &a.Status, &a.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// ListClientsWithOrderCount 客户及其在本租户的订单数
func (r *TenantRepo) ListClientsWithOrderCount(ctx context.Context) ([]domain.ClientOrderCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.uuid, c.source_tenant, c.name, c.email, c.phone, c.address, c.notes, c.created_at,
		       (SELECT COUNT(*) FROM orders o WHERE o.client_id = c.id)
		FROM clients c
		ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	items := []domain.ClientOrderCount{}
	for rows.Next() {
		var it domain.ClientOrderCount
		var uuid, source sql.NullString
		c := &it.Client
		if err := rows.Scan(&c.LocalID, &uuid, &source, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt, &it.OrderCount); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		c.UUID = uuid.String
		c.SourceTenant = source.String
		items = append(items, it)
	}
	return items, rows.Err()
}

// FindOrderByTrackingToken 按公开追踪码查订单详情，不存在返回 nil, nil
func (r *TenantRepo) FindOrderByTrackingToken(ctx context.Context, token string) (*domain.OrderDetail, error) {
	var d domain.OrderDetail
	var uuid, tk sql.NullString
	var total float64
	err := r.db.QueryRowContext(ctx, `
		SELECT o.id, o.uuid, o.tracking_token, c.name, COALESCE(v.plate, ''), o.status, o.description, o.created_at, o.total
		FROM orders o
		INNER JOIN clients c ON c.id = o.client_id
		LEFT JOIN vehicles v ON v.id = o.vehicle_id
		WHERE o.tracking_token = $1`, token).
		Scan(&d.Order.LocalID, &uuid, &tk, &d.Order.ClientName, &d.Order.VehiclePlate, &d.Order.Status, &d.Order.Description, &d.Order.CreatedAt, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	d.Order.UUID = uuid.String
	d.Order.TrackingToken = tk.String
	d.Total = &total

	if d.Items, err = r.listOrderItems(ctx, d.Order.LocalID); err != nil {
		return nil, err
	}
	if d.History, err = r.listOrderHistory(ctx, d.Order.LocalID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *TenantRepo) listOrderItems(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT description, quantity, unit_price, subtotal FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var it domain.OrderItem
		var price, subtotal float64
		if err := rows.Scan(&it.Description, &it.Quantity, &price, &subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		it.UnitPrice = &price
		it.Subtotal = &subtotal
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *TenantRepo) listOrderHistory(ctx context.Context, orderID int64) ([]domain.OrderHistory, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, note, created_at FROM order_history WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order history: %w", err)
	}
	defer rows.Close()

	history := []domain.OrderHistory{}
	for rows.Next() {
		var h domain.OrderHistory
		if err := rows.Scan(&h.Status, &h.Note, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// Stats 本租户报表数据（订单数、客户数、营业额）
func (r *TenantRepo) Stats(ctx context.Context) (*domain.TenantStats, error) {
	var s domain.TenantStats
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(total), 0) FROM orders`).Scan(&s.OrderCount, &s.Revenue); err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&s.ClientCount); err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}
	return &s, nil
}
