package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

func setupMockRegistry(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresChainRegistry) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresChainRegistry(db)
}

func TestPostgresChainRegistry_GetChain(t *testing.T) {
	db, mock, r := setupMockRegistry(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT chain_id::text, slug, name, visibility_level FROM chains`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"chain_id", "slug", "name", "visibility_level"}).
			AddRow("c1", "norte", "Talleres Norte", "no_prices"))

	c, err := r.GetChain(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "norte", c.Slug)
	assert.Equal(t, domain.VisibilityNoPrices, c.VisibilityLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresChainRegistry_GetChain_NotFound(t *testing.T) {
	db, mock, r := setupMockRegistry(t)
	defer db.Close()

	mock.ExpectQuery(`FROM chains`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := r.GetChain(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrChainNotFound)
}

func TestPostgresChainRegistry_GetChainByTenant_NotMember(t *testing.T) {
	db, mock, r := setupMockRegistry(t)
	defer db.Close()

	mock.ExpectQuery(`FROM chain_members m`).
		WithArgs("solo").
		WillReturnRows(sqlmock.NewRows([]string{"chain_id", "slug", "name", "visibility_level"}))

	c, err := r.GetChainByTenant(context.Background(), "solo")
	require.NoError(t, err)
	assert.Nil(t, c)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresChainRegistry_GetChainByTenant_Error(t *testing.T) {
	db, mock, r := setupMockRegistry(t)
	defer db.Close()

	mock.ExpectQuery(`FROM chain_members m`).WithArgs("a").WillReturnError(sql.ErrConnDone)

	_, err := r.GetChainByTenant(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get chain by tenant")
}

func TestPostgresChainRegistry_ListMembers(t *testing.T) {
	db, mock, r := setupMockRegistry(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT tenant_slug FROM chain_members WHERE chain_id = \$1 ORDER BY tenant_slug`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"tenant_slug"}).AddRow("a").AddRow("b"))

	slugs, err := r.ListMembers(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, slugs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresChainRegistry_GetChainUser(t *testing.T) {
	db, mock, r := setupMockRegistry(t)
	defer db.Close()

	mock.ExpectQuery(`FROM chain_users`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "chain_id", "name", "can_see_financials"}).
			AddRow("u1", "c1", "Owner", true))

	u, err := r.GetChainUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, u.CanSeeFinancials)

	mock.ExpectQuery(`FROM chain_users`).WithArgs("u2").WillReturnError(sql.ErrNoRows)
	_, err = r.GetChainUser(context.Background(), "u2")
	assert.ErrorIs(t, err, ErrChainUserNotFound)
}
