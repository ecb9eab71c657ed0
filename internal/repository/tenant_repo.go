package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

// DBTX *sql.DB 与 *sql.Tx 的公共子集
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TenantRepo 单个租户库上的读写
// 注意：租户库连接池只有一个连接，rows 未关闭前不能再发起查询
type TenantRepo struct {
	db DBTX
}

func NewTenantRepo(db DBTX) *TenantRepo {
	return &TenantRepo{db: db}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

const clientColumns = `id, uuid, source_tenant, name, email, phone, address, notes, created_at`

func scanClient(row interface{ Scan(...any) error }) (*domain.Client, error) {
	var c domain.Client
	var uuid, source sql.NullString
	if err := row.Scan(&c.LocalID, &uuid, &source, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.UUID = uuid.String
	c.SourceTenant = source.String
	return &c, nil
}

// GetClientByUUID 按全局 id 查询客户，不存在返回 nil, nil
func (r *TenantRepo) GetClientByUUID(ctx context.Context, id string) (*domain.Client, error) {
	c, err := scanClient(r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE uuid = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

// CreateClient 本地新建客户（业务写入），返回本地 id
func (r *TenantRepo) CreateClient(ctx context.Context, c *domain.Client) (int64, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (uuid, source_tenant, name, email, phone, address, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		nullString(c.UUID), nullString(c.SourceTenant), c.Name, c.Email, c.Phone, c.Address, c.Notes, c.CreatedAt, c.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert client: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get client id: %w", err)
	}
	c.LocalID = id
	return id, nil
}

// UpdateClient 本地修改客户（业务写入，不做所有权判断）
func (r *TenantRepo) UpdateClient(ctx context.Context, c *domain.Client) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE clients SET name = $1, email = $2, phone = $3, address = $4, notes = $5, updated_at = $6 WHERE id = $7`,
		c.Name, c.Email, c.Phone, c.Address, c.Notes, time.Now().UTC(), c.LocalID,
	)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	return nil
}

const vehicleColumns = `id, uuid, source_tenant, client_id, plate, brand, model, year, vin, km, notes, created_at`

func scanVehicle(row interface{ Scan(...any) error }) (*domain.Vehicle, error) {
	var v domain.Vehicle
	var uuid, source sql.NullString
	if err := row.Scan(&v.LocalID, &uuid, &source, &v.ClientLocalID, &v.Plate, &v.Brand, &v.Model, &v.Year, &v.VIN, &v.KM, &v.Notes, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.UUID = uuid.String
	v.SourceTenant = source.String
	return &v, nil
}

// GetVehicleByUUID 按全局 id 查询车辆，不存在返回 nil, nil
func (r *TenantRepo) GetVehicleByUUID(ctx context.Context, id string) (*domain.Vehicle, error) {
	v, err := scanVehicle(r.db.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE uuid = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return v, nil
}

// CreateVehicle 本地新建车辆
func (r *TenantRepo) CreateVehicle(ctx context.Context, v *domain.Vehicle) (int64, error) {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO vehicles (uuid, source_tenant, client_id, plate, brand, model, year, vin, km, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		nullString(v.UUID), nullString(v.SourceTenant), v.ClientLocalID, v.Plate, v.Brand, v.Model, v.Year, v.VIN, v.KM, v.Notes, v.CreatedAt, v.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert vehicle: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get vehicle id: %w", err)
	}
	v.LocalID = id
	return id, nil
}

// UpdateVehicleKM 本地更新里程（各门店独立维护，不参与复制）
func (r *TenantRepo) UpdateVehicleKM(ctx context.Context, localID int64, km int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE vehicles SET km = $1, updated_at = $2 WHERE id = $3`, km, time.Now().UTC(), localID)
	if err != nil {
		return fmt.Errorf("failed to update vehicle km: %w", err)
	}
	return nil
}
