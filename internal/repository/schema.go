package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed sql/control_schema.sql
var ControlSchemaSQL string

//go:embed sql/tenant_schema.sql
var tenantSchemaSQL string

// ApplyTenantSchema 建表（幂等），租户库首次打开时执行
func ApplyTenantSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, tenantSchemaSQL); err != nil {
		return fmt.Errorf("failed to apply tenant schema: %w", err)
	}
	return nil
}
