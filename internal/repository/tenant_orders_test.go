package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jorgedurante-source/taller-sub000/internal/domain"
)

func seedOrders(t *testing.T, repo *TenantRepo) (clientID, vehicleID int64) {
	ctx := context.Background()
	var err error
	clientID, err = repo.CreateClient(ctx, &domain.Client{UUID: "u1", SourceTenant: "a", Name: "Ana"})
	require.NoError(t, err)
	vehicleID, err = repo.CreateVehicle(ctx, &domain.Vehicle{UUID: "v1", SourceTenant: "a", ClientLocalID: clientID, Plate: "AA111AA"})
	require.NoError(t, err)

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, token := range []string{"T-1", "T-2", "T-3"} {
		_, err := repo.CreateOrder(ctx, &NewOrder{
			TrackingToken:  token,
			ClientLocalID:  clientID,
			VehicleLocalID: vehicleID,
			Description:    "service " + token,
			CreatedAt:      base.Add(time.Duration(i) * time.Hour),
			Items: []NewOrderItem{
				{Description: "oil", Quantity: 4, UnitPrice: 10},
				{Description: "filter", Quantity: 1, UnitPrice: 15},
			},
		})
		require.NoError(t, err)
	}
	return clientID, vehicleID
}

func TestListRecentOrders_NewestFirstWithLimit(t *testing.T) {
	dir := newTestDirectory(t)
	repo := NewTenantRepo(openTestTenant(t, dir, "a"))
	seedOrders(t, repo)

	orders, err := repo.ListRecentOrders(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "T-3", orders[0].TrackingToken)
	assert.Equal(t, "T-2", orders[1].TrackingToken)
	assert.Equal(t, "Ana", orders[0].ClientName)
	assert.Equal(t, "AA111AA", orders[0].VehiclePlate)
}

func TestFindOrderByTrackingToken(t *testing.T) {
	dir := newTestDirectory(t)
	repo := NewTenantRepo(openTestTenant(t, dir, "a"))
	seedOrders(t, repo)
	ctx := context.Background()

	d, err := repo.FindOrderByTrackingToken(ctx, "T-2")
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Len(t, d.Items, 2)
	assert.Equal(t, "oil", d.Items[0].Description)
	require.NotNil(t, d.Items[0].Subtotal)
	assert.InDelta(t, 40.0, *d.Items[0].Subtotal, 0.001)
	require.NotNil(t, d.Total)
	assert.InDelta(t, 55.0, *d.Total, 0.001)
	require.Len(t, d.History, 1)
	assert.Equal(t, "pending", d.History[0].Status)

	d, err = repo.FindOrderByTrackingToken(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestListClientsWithOrderCount(t *testing.T) {
	dir := newTestDirectory(t)
	repo := NewTenantRepo(openTestTenant(t, dir, "a"))
	seedOrders(t, repo)
	_, err := repo.CreateClient(context.Background(), &domain.Client{Name: "Legacy Bob"})
	require.NoError(t, err)

	items, err := repo.ListClientsWithOrderCount(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Ana", items[0].Client.Name)
	assert.Equal(t, 3, items[0].OrderCount)
	assert.Equal(t, "", items[1].Client.UUID)
	assert.Equal(t, 0, items[1].OrderCount)
}

func TestListAppointments_FromFilterAndOrder(t *testing.T) {
	dir := newTestDirectory(t)
	repo := NewTenantRepo(openTestTenant(t, dir, "a"))
	clientID, vehicleID := seedOrders(t, repo)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.CreateAppointment(ctx, clientID, vehicleID, now.Add(48*time.Hour), "brakes")
	require.NoError(t, err)
	_, err = repo.CreateAppointment(ctx, clientID, 0, now.Add(2*time.Hour), "quote")
	require.NoError(t, err)
	_, err = repo.CreateAppointment(ctx, clientID, vehicleID, now.Add(-24*time.Hour), "past")
	require.NoError(t, err)

	items, err := repo.ListAppointments(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "quote", items[0].Notes)
	assert.Equal(t, "", items[0].VehiclePlate)
	assert.Equal(t, "brakes", items[1].Notes)
}

func TestStats(t *testing.T) {
	dir := newTestDirectory(t)
	repo := NewTenantRepo(openTestTenant(t, dir, "a"))
	seedOrders(t, repo)

	s, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.OrderCount)
	assert.Equal(t, 1, s.ClientCount)
	assert.InDelta(t, 165.0, s.Revenue, 0.001)
}
