package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

// ErrClientNotReplicated 车辆所属客户尚未复制到目标租户（可重试）
var ErrClientNotReplicated = errors.New("owning client not yet present in target tenant")

// UpsertResult 复制写入结果
type UpsertResult string

const (
	UpsertInserted     UpsertResult = "inserted"
	UpsertUpdated      UpsertResult = "updated"
	UpsertUnchanged    UpsertResult = "unchanged"
	UpsertSkippedOwner UpsertResult = "skipped_owner"
)

// UpsertReplicatedClient 按全局 id 写入客户副本
// 已存在：仅当 source_tenant 一致时更新复制字段（name/email/phone/address/notes），否则静默跳过
// 不存在：完整插入，保留 id、source_tenant、created_at
func (r *TenantRepo) UpsertReplicatedClient(ctx context.Context, p *domain.ClientPayload) (UpsertResult, error) {
	existing, err := r.GetClientByUUID(ctx, p.ID)
	if err != nil {
		return "", err
	}

	if existing == nil {
		created := p.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO clients (uuid, source_tenant, name, email, phone, address, notes, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			p.ID, nullString(p.SourceTenant), p.Name, p.Email, p.Phone, p.Address, p.Notes, created, time.Now().UTC(),
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert replicated client: %w", err)
		}
		return UpsertInserted, nil
	}

	if existing.SourceTenant != p.SourceTenant {
		return UpsertSkippedOwner, nil
	}

	if existing.Name == p.Name && existing.Email == p.Email && existing.Phone == p.Phone &&
		existing.Address == p.Address && existing.Notes == p.Notes {
		return UpsertUnchanged, nil
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE clients SET name = $1, email = $2, phone = $3, address = $4, notes = $5, updated_at = $6 WHERE id = $7`,
		p.Name, p.Email, p.Phone, p.Address, p.Notes, time.Now().UTC(), existing.LocalID,
	)
	if err != nil {
		return "", fmt.Errorf("failed to update replicated client: %w", err)
	}
	return UpsertUpdated, nil
}

// UpsertReplicatedVehicle 按全局 id 写入车辆副本，所属客户必须已存在
// km 只在插入时写入，之后由各门店本地维护
func (r *TenantRepo) UpsertReplicatedVehicle(ctx context.Context, p *domain.VehiclePayload) (UpsertResult, error) {
	owner, err := r.GetClientByUUID(ctx, p.ClientID)
	if err != nil {
		return "", err
	}
	if owner == nil {
		return "", fmt.Errorf("%w: client %s", ErrClientNotReplicated, p.ClientID)
	}

	existing, err := r.GetVehicleByUUID(ctx, p.ID)
	if err != nil {
		return "", err
	}

	if existing == nil {
		created := p.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO vehicles (uuid, source_tenant, client_id, plate, brand, model, year, vin, km, notes, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			p.ID, nullString(p.SourceTenant), owner.LocalID, p.Plate, p.Brand, p.Model, p.Year, p.VIN, p.KM, p.Notes, created, time.Now().UTC(),
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert replicated vehicle: %w", err)
		}
		return UpsertInserted, nil
	}

	if existing.SourceTenant != p.SourceTenant {
		return UpsertSkippedOwner, nil
	}

	if existing.ClientLocalID == owner.LocalID && existing.Plate == p.Plate && existing.Brand == p.Brand &&
		existing.Model == p.Model && existing.Year == p.Year && existing.VIN == p.VIN && existing.Notes == p.Notes {
		return UpsertUnchanged, nil
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE vehicles SET client_id = $1, plate = $2, brand = $3, model = $4, year = $5, vin = $6, notes = $7, updated_at = $8
		 WHERE id = $9`,
		owner.LocalID, p.Plate, p.Brand, p.Model, p.Year, p.VIN, p.Notes, time.Now().UTC(), existing.LocalID,
	)
	if err != nil {
		return "", fmt.Errorf("failed to update replicated vehicle: %w", err)
	}
	return UpsertUpdated, nil
}
