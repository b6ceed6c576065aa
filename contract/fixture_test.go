package contract

import (
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hyperledger/fabric-chaincode-go/shimtest"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	alice    = "x509::CN=alice,OU=client::CN=ca.org1.example.com"
	bob      = "x509::CN=bob,OU=client::CN=ca.org1.example.com"
	charlie  = "x509::CN=charlie,OU=client::CN=ca.org1.example.com"
	deployer = "x509::CN=deployer,OU=admin::CN=ca.org1.example.com"
)

var genesis = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

// fakeClientIdentity stands in for the certificate-backed identity the peer supplies.
type fakeClientIdentity struct {
	id  string
	err error
}

func (f fakeClientIdentity) GetID() (string, error) { return f.id, f.err }

func (f fakeClientIdentity) GetMSPID() (string, error) { return "Org1MSP", nil }

func (f fakeClientIdentity) GetAttributeValue(string) (string, bool, error) { return "", false, nil }

func (f fakeClientIdentity) AssertAttributeValue(string, string) error {
	return errors.New("attributes not supported by fake identity")
}

func (f fakeClientIdentity) GetX509Certificate() (*x509.Certificate, error) { return nil, nil }

// network is a single-peer ledger with all three contracts deployed on it.
type network struct {
	t        *testing.T
	stub     *shimtest.MockStub
	now      time.Time
	txSeq    int
	events   []*peer.ChaincodeEvent
	registry *DIDRegistryContract
	licenses *LicenseLedgerContract
	assets   *AssetManagerContract
}

func newNetwork(t *testing.T) *network {
	return newNetworkWithOptions(t, AssetOptions{})
}

func newNetworkWithOptions(t *testing.T, opts AssetOptions) *network {
	t.Helper()
	registry, licenses, assets := NewContracts(opts)
	return &network{
		t:        t,
		stub:     shimtest.NewMockStub("identityledger", nil),
		now:      genesis,
		registry: registry,
		licenses: licenses,
		assets:   assets,
	}
}

// as starts a new transaction submitted by caller at the current network time.
func (n *network) as(caller string) contractapi.TransactionContextInterface {
	return n.withIdentity(fakeClientIdentity{id: caller})
}

func (n *network) withIdentity(identity fakeClientIdentity) contractapi.TransactionContextInterface {
	n.drainEvents()
	n.txSeq++
	n.stub.MockTransactionStart(fmt.Sprintf("tx-%d", n.txSeq))
	n.stub.TxTimestamp = timestamppb.New(n.now)

	ctx := new(contractapi.TransactionContext)
	ctx.SetStub(n.stub)
	ctx.SetClientIdentity(identity)
	return ctx
}

func (n *network) advance(d time.Duration) {
	n.now = n.now.Add(d)
}

func (n *network) drainEvents() {
	for {
		select {
		case ev := <-n.stub.ChaincodeEventsChannel:
			n.events = append(n.events, ev)
		default:
			return
		}
	}
}

// lastEvent returns the name and decoded payload of the most recent event.
func (n *network) lastEvent() (string, map[string]interface{}) {
	n.t.Helper()
	n.drainEvents()
	require.NotEmpty(n.t, n.events, "no chaincode event emitted")
	ev := n.events[len(n.events)-1]
	payload := map[string]interface{}{}
	require.NoError(n.t, json.Unmarshal(ev.Payload, &payload))
	return ev.EventName, payload
}

// snapshot copies the world state so a test can prove a call left it untouched.
func (n *network) snapshot() map[string]string {
	state := make(map[string]string, len(n.stub.State))
	for k, v := range n.stub.State {
		state[k] = string(v)
	}
	return state
}

func (n *network) register(accounts ...string) {
	n.t.Helper()
	for _, account := range accounts {
		require.NoError(n.t, n.registry.RegisterDID(n.as(account), "ipfs://"+account))
	}
}

func (n *network) mint(owner string) uint64 {
	n.t.Helper()
	id, err := n.assets.MintNFT(n.as(owner), "ipfs://asset", n.assets.CalculateFee(MintFee))
	require.NoError(n.t, err)
	return id
}

// requireRejected asserts both the kind and the exact client-facing reason.
func requireRejected(t *testing.T, err error, kind error, reason string) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, kind)
	assert.EqualError(t, err, reason)
}
