package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var ledgerLogger = flogging.MustGetLogger("identityledger.ledger")

// Object types for composite keys, also usable as 'docType' or 'objectType' in CouchDB.
const (
	didObjectType           = "DID"           // Stores DIDRecord objects. Attribute: account.
	licenseObjectType       = "License"       // Stores License objects. Attribute: padded id.
	licenseHolderObjectType = "LicenseHolder" // Index. Attributes: licensee, padded id.
	assetObjectType         = "Asset"         // Stores Asset objects. Attribute: padded id.
	assetOwnerObjectType    = "AssetOwner"    // Index. Attributes: owner, padded id.
	sequenceObjectType      = "Sequence"      // Next-id counters. Attribute: sequence name.
	feeBalanceObjectType    = "FeeBalance"    // Accrued fees. Attribute: "accrued".
	authorityObjectType     = "Authority"     // Captured withdraw authority. Attribute: "withdraw".
)

const (
	licenseSequence = "license"
	assetSequence   = "asset"
)

// indexMarker is the value stored under index keys; only the key matters.
var indexMarker = []byte{0x00}

// ledger wraps a transaction context with the state helpers shared by all contracts.
type ledger struct {
	ctx contractapi.TransactionContextInterface
}

func newLedger(ctx contractapi.TransactionContextInterface) *ledger {
	return &ledger{ctx: ctx}
}

// --- Caller identity & time ---

func isValidX509ID(id string) bool {
	return strings.HasPrefix(id, "x509::") || strings.HasPrefix(id, "eDUwOTo6") // "eDUwOTo6" is "x509::" base64 encoded
}

// callerID retrieves the authenticated identity of the current transactor.
func (l *ledger) callerID() (string, error) {
	clientIdentity := l.ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return "", errors.New("client identity ID from context is empty")
	}
	if !isValidX509ID(id) {
		ledgerLogger.Debugf("Current client ID '%s' does not appear to be a standard X.509 format.", id)
	}
	return id, nil
}

// txTime returns the timestamp the proposal was created with. It is the same
// value on every endorsing peer, unlike the local clock.
func (l *ledger) txTime() (time.Time, error) {
	ts, err := l.ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

// --- Keys ---

func formatID(id uint64) string {
	return fmt.Sprintf("%020d", id)
}

func (l *ledger) key(objectType string, attributes ...string) (string, error) {
	k, err := l.ctx.GetStub().CreateCompositeKey(objectType, attributes)
	if err != nil {
		return "", fmt.Errorf("failed to create %s composite key: %w", objectType, err)
	}
	return k, nil
}

// --- Reads & writes ---

// getJSON loads the value under key into v. It reports false when the key is absent.
func (l *ledger) getJSON(key string, v interface{}) (bool, error) {
	raw, err := l.ctx.GetStub().GetState(key)
	if err != nil {
		return false, fmt.Errorf("ledger error reading '%s': %w", key, err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal state under '%s': %w", key, err)
	}
	return true, nil
}

func (l *ledger) putJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal state for '%s': %w", key, err)
	}
	if err := l.ctx.GetStub().PutState(key, raw); err != nil {
		return fmt.Errorf("failed to save state under '%s': %w", key, err)
	}
	return nil
}

func (l *ledger) exists(key string) (bool, error) {
	raw, err := l.ctx.GetStub().GetState(key)
	if err != nil {
		return false, fmt.Errorf("ledger error reading '%s': %w", key, err)
	}
	return raw != nil, nil
}

func (l *ledger) putIndex(objectType string, attributes ...string) error {
	k, err := l.key(objectType, attributes...)
	if err != nil {
		return err
	}
	if err := l.ctx.GetStub().PutState(k, indexMarker); err != nil {
		return fmt.Errorf("failed to write %s index entry: %w", objectType, err)
	}
	return nil
}

func (l *ledger) delIndex(objectType string, attributes ...string) error {
	k, err := l.key(objectType, attributes...)
	if err != nil {
		return err
	}
	if err := l.ctx.GetStub().DelState(k); err != nil {
		return fmt.Errorf("failed to delete %s index entry: %w", objectType, err)
	}
	return nil
}

// indexedIDs lists the ids stored as the last attribute of every index entry
// under objectType/prefix, in ascending order.
func (l *ledger) indexedIDs(objectType string, prefix ...string) ([]uint64, error) {
	iterator, err := l.ctx.GetStub().GetStateByPartialCompositeKey(objectType, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s index: %w", objectType, err)
	}
	defer iterator.Close()

	ids := []uint64{}
	for iterator.HasNext() {
		entry, iterErr := iterator.Next()
		if iterErr != nil {
			return nil, fmt.Errorf("failed to iterate %s index: %w", objectType, iterErr)
		}
		_, attributes, splitErr := l.ctx.GetStub().SplitCompositeKey(entry.Key)
		if splitErr != nil || len(attributes) == 0 {
			ledgerLogger.Warningf("Skipping malformed %s index key '%s': %v", objectType, entry.Key, splitErr)
			continue
		}
		id, parseErr := strconv.ParseUint(attributes[len(attributes)-1], 10, 64)
		if parseErr != nil {
			ledgerLogger.Warningf("Skipping %s index key with non-numeric id '%s': %v", objectType, entry.Key, parseErr)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// --- Counters ---

func (l *ledger) getUint64(objectType, name string) (uint64, error) {
	k, err := l.key(objectType, name)
	if err != nil {
		return 0, err
	}
	raw, err := l.ctx.GetStub().GetState(k)
	if err != nil {
		return 0, fmt.Errorf("ledger error reading %s '%s': %w", objectType, name, err)
	}
	if raw == nil {
		return 0, nil
	}
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt %s '%s' value '%s': %w", objectType, name, string(raw), err)
	}
	return v, nil
}

func (l *ledger) putUint64(objectType, name string, v uint64) error {
	k, err := l.key(objectType, name)
	if err != nil {
		return err
	}
	if err := l.ctx.GetStub().PutState(k, []byte(strconv.FormatUint(v, 10))); err != nil {
		return fmt.Errorf("failed to save %s '%s': %w", objectType, name, err)
	}
	return nil
}

// allocateID hands out the next id of a sequence, starting at 1. The counter
// only ever grows, so ids of deleted records are never handed out again.
func (l *ledger) allocateID(sequence string) (uint64, error) {
	last, err := l.getUint64(sequenceObjectType, sequence)
	if err != nil {
		return 0, err
	}
	next := last + 1
	if next == 0 {
		return 0, fmt.Errorf("%s sequence exhausted", sequence)
	}
	if err := l.putUint64(sequenceObjectType, sequence, next); err != nil {
		return 0, err
	}
	return next, nil
}

// --- Events ---

// emitEvent sends a chaincode event. Fabric keeps one event per transaction,
// so each operation emits at most once.
func (l *ledger) emitEvent(eventName string, payload map[string]interface{}) {
	if ts, err := l.txTime(); err == nil {
		payload["transactionTimestamp"] = ts.Format(time.RFC3339)
	}
	for k, v := range payload {
		if t, ok := v.(time.Time); ok {
			payload[k] = t.Format(time.RFC3339)
		}
	}
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		ledgerLogger.Warningf("emitEvent: Failed to marshal payload for event '%s': %v", eventName, err)
		return
	}
	if errSet := l.ctx.GetStub().SetEvent(eventName, eventBytes); errSet != nil {
		ledgerLogger.Warningf("emitEvent: Failed to set event '%s': %v", eventName, errSet)
	}
}
