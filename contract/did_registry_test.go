package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterDID(t *testing.T) {
	n := newNetwork(t)

	has, err := n.registry.HasDID(n.as(bob), alice)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, n.registry.RegisterDID(n.as(alice), "QmA"))

	has, err = n.registry.HasDID(n.as(bob), alice)
	require.NoError(t, err)
	assert.True(t, has)

	pointer, err := n.registry.GetDID(n.as(bob), alice)
	require.NoError(t, err)
	assert.Equal(t, "QmA", pointer)

	name, payload := n.lastEvent()
	assert.Equal(t, "DIDRegistered", name)
	assert.Equal(t, alice, payload["account"])
	assert.Equal(t, "QmA", payload["documentPointer"])
	assert.Equal(t, genesis.Format(time.RFC3339), payload["transactionTimestamp"])
}

func TestRegisterDIDRejectsEmptyDocument(t *testing.T) {
	n := newNetwork(t)

	err := n.registry.RegisterDID(n.as(alice), "")
	requireRejected(t, err, ErrInvalidInput, "Invalid DID document")

	has, err := n.registry.HasDID(n.as(alice), alice)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestRegisterDIDTwice(t *testing.T) {
	n := newNetwork(t)
	require.NoError(t, n.registry.RegisterDID(n.as(alice), "QmA"))

	err := n.registry.RegisterDID(n.as(alice), "QmOther")
	requireRejected(t, err, ErrAlreadyRegistered, "DID already registered")

	pointer, err := n.registry.GetDID(n.as(alice), alice)
	require.NoError(t, err)
	assert.Equal(t, "QmA", pointer)
}

func TestRegisterDIDEmptyDocumentCheckedFirst(t *testing.T) {
	n := newNetwork(t)
	require.NoError(t, n.registry.RegisterDID(n.as(alice), "QmA"))

	err := n.registry.RegisterDID(n.as(alice), "")
	requireRejected(t, err, ErrInvalidInput, "Invalid DID document")
}

func TestUpdateDID(t *testing.T) {
	n := newNetwork(t)
	require.NoError(t, n.registry.RegisterDID(n.as(alice), "QmA"))

	n.advance(time.Hour)
	require.NoError(t, n.registry.UpdateDID(n.as(alice), "QmB"))

	record, err := n.registry.GetDIDRecord(n.as(bob), alice)
	require.NoError(t, err)
	assert.Equal(t, alice, record.Account)
	assert.Equal(t, "QmB", record.DocumentPointer)
	assert.True(t, record.RegisteredAt.Equal(genesis))
	assert.True(t, record.LastUpdatedAt.Equal(genesis.Add(time.Hour)))

	name, payload := n.lastEvent()
	assert.Equal(t, "DIDUpdated", name)
	assert.Equal(t, "QmA", payload["previousPointer"])
	assert.Equal(t, "QmB", payload["documentPointer"])
}

func TestUpdateDIDWithoutRecord(t *testing.T) {
	n := newNetwork(t)
	require.NoError(t, n.registry.RegisterDID(n.as(alice), "QmA"))

	// UpdateDID only ever addresses the caller's own slot.
	err := n.registry.UpdateDID(n.as(bob), "QmEvil")
	requireRejected(t, err, ErrNotRegistered, "DID not registered")

	pointer, err := n.registry.GetDID(n.as(bob), alice)
	require.NoError(t, err)
	assert.Equal(t, "QmA", pointer)

	has, err := n.registry.HasDID(n.as(bob), bob)
	require.NoError(t, err)
	assert.False(t, has)
}

// Assumed behavior: an empty replacement pointer is refused like an empty registration.
func TestUpdateDIDRejectsEmptyPointer(t *testing.T) {
	n := newNetwork(t)
	require.NoError(t, n.registry.RegisterDID(n.as(alice), "QmA"))

	err := n.registry.UpdateDID(n.as(alice), "")
	requireRejected(t, err, ErrInvalidInput, "Invalid DID document")

	pointer, err := n.registry.GetDID(n.as(alice), alice)
	require.NoError(t, err)
	assert.Equal(t, "QmA", pointer)
}

func TestGetDIDUnknownAccount(t *testing.T) {
	n := newNetwork(t)

	_, err := n.registry.GetDID(n.as(alice), charlie)
	requireRejected(t, err, ErrNotRegistered, "DID not registered")

	_, err = n.registry.GetDIDRecord(n.as(alice), charlie)
	requireRejected(t, err, ErrNotRegistered, "DID not registered")
}

func TestRegisterDIDRequiresIdentity(t *testing.T) {
	n := newNetwork(t)

	err := n.registry.RegisterDID(n.withIdentity(fakeClientIdentity{}), "QmA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client identity ID from context is empty")
	assert.Empty(t, n.snapshot())
}
