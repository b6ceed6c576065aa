package contract

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatIDSortsNumerically(t *testing.T) {
	assert.Equal(t, "00000000000000000009", formatID(9))
	assert.Less(t, formatID(9), formatID(10))
	assert.Len(t, formatID(^uint64(0)), 20)
}

func TestAllocateID(t *testing.T) {
	n := newNetwork(t)
	l := newLedger(n.as(alice))

	first, err := l.allocateID(licenseSequence)
	require.NoError(t, err)
	second, err := l.allocateID(licenseSequence)
	require.NoError(t, err)
	other, err := l.allocateID(assetSequence)
	require.NoError(t, err)

	assert.EqualValues(t, 1, first)
	assert.EqualValues(t, 2, second)
	assert.EqualValues(t, 1, other)
}

func TestAllocateIDExhausted(t *testing.T) {
	n := newNetwork(t)
	l := newLedger(n.as(alice))
	require.NoError(t, l.putUint64(sequenceObjectType, assetSequence, ^uint64(0)))

	_, err := l.allocateID(assetSequence)
	assert.EqualError(t, err, "asset sequence exhausted")
}

func TestGetUint64Corrupt(t *testing.T) {
	n := newNetwork(t)
	l := newLedger(n.as(alice))
	k, err := l.key(feeBalanceObjectType, feeBalanceName)
	require.NoError(t, err)
	require.NoError(t, n.stub.PutState(k, []byte("lots")))

	_, err = l.getUint64(feeBalanceObjectType, feeBalanceName)
	assert.Error(t, err)
}

func TestIndexedIDsSkipsMalformedEntries(t *testing.T) {
	n := newNetwork(t)
	l := newLedger(n.as(alice))
	require.NoError(t, l.putIndex(assetOwnerObjectType, alice, formatID(12)))
	require.NoError(t, l.putIndex(assetOwnerObjectType, alice, formatID(3)))
	require.NoError(t, l.putIndex(assetOwnerObjectType, alice, "not-a-number"))
	require.NoError(t, l.putIndex(assetOwnerObjectType, bob, formatID(5)))

	ids, err := l.indexedIDs(assetOwnerObjectType, alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 12}, ids)

	require.NoError(t, l.delIndex(assetOwnerObjectType, alice, formatID(3)))
	ids, err = l.indexedIDs(assetOwnerObjectType, alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{12}, ids)
}

func TestCallerID(t *testing.T) {
	n := newNetwork(t)

	id, err := newLedger(n.as(alice)).callerID()
	require.NoError(t, err)
	assert.Equal(t, alice, id)

	_, err = newLedger(n.withIdentity(fakeClientIdentity{err: errors.New("no certificate")})).callerID()
	assert.ErrorContains(t, err, "no certificate")

	_, err = newLedger(n.withIdentity(fakeClientIdentity{})).callerID()
	assert.Error(t, err)
}

func TestIsValidX509ID(t *testing.T) {
	assert.True(t, isValidX509ID(alice))
	assert.True(t, isValidX509ID("eDUwOTo6Q049YWxpY2U="))
	assert.False(t, isValidX509ID("alice"))
}
