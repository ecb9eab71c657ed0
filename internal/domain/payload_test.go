package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload_Client(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	raw, err := EncodePayload(&ClientPayload{ID: "u1", SourceTenant: "a", Name: "Ana", CreatedAt: created})
	require.NoError(t, err)

	p, err := DecodePayload(OpUpsertClient, raw)
	require.NoError(t, err)

	cp, ok := p.(*ClientPayload)
	require.True(t, ok)
	assert.Equal(t, "u1", cp.ID)
	assert.Equal(t, "a", cp.Owner())
	assert.True(t, created.Equal(cp.CreatedAt))
}

func TestDecodePayload_Vehicle(t *testing.T) {
	raw := json.RawMessage(`{"id":"v1","source_tenant":"a","client_id":"u1","plate":"AB123CD"}`)
	p, err := DecodePayload(OpUpsertVehicle, raw)
	require.NoError(t, err)

	vp, ok := p.(*VehiclePayload)
	require.True(t, ok)
	assert.Equal(t, "u1", vp.ClientID)
	assert.Equal(t, OpUpsertVehicle, vp.Operation())
}

func TestDecodePayload_UnknownOperation(t *testing.T) {
	p, err := DecodePayload(Operation("upsert_invoice"), json.RawMessage(`{"id":"x"}`))
	require.NoError(t, err)

	up, ok := p.(*UnknownPayload)
	require.True(t, ok)
	assert.Equal(t, Operation("upsert_invoice"), up.Operation())
}

func TestDecodePayload_Invalid(t *testing.T) {
	_, err := DecodePayload(OpUpsertClient, json.RawMessage(`{not json`))
	assert.Error(t, err)

	_, err = DecodePayload(OpUpsertVehicle, json.RawMessage(`{"plate":"X"}`))
	assert.ErrorIs(t, err, ErrEmptyEntityID)
}

func TestEncodePayload_RequiresID(t *testing.T) {
	_, err := EncodePayload(&ClientPayload{Name: "legacy"})
	assert.ErrorIs(t, err, ErrEmptyEntityID)
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobPending.Terminal())
	assert.True(t, JobDone.Terminal())
	assert.True(t, JobFailed.Terminal())
}
