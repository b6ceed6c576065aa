package contract

import (
	"fmt"

	"identityledger/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var didLogger = flogging.MustGetLogger("identityledger.didregistry")

// DIDRegistryName is the contract namespace used by clients, e.g. "DIDRegistry:RegisterDID".
const DIDRegistryName = "DIDRegistry"

// DIDLookup is the read-only slice of the registry that gates licensing and minting.
type DIDLookup interface {
	HasDID(ctx contractapi.TransactionContextInterface, account string) (bool, error)
}

// DIDRegistryContract binds every client identity to at most one DID document.
// Records are created by their own account, updated only by it, and never deleted.
// @contract:DIDRegistry
type DIDRegistryContract struct {
	contractapi.Contract
}

// NewDIDRegistryContract creates the registry contract.
func NewDIDRegistryContract() *DIDRegistryContract {
	return &DIDRegistryContract{Contract: contractapi.Contract{Name: DIDRegistryName}}
}

func (r *DIDRegistryContract) getRecord(l *ledger, account string) (*model.DIDRecord, string, error) {
	key, err := l.key(didObjectType, account)
	if err != nil {
		return nil, "", err
	}
	var record model.DIDRecord
	found, err := l.getJSON(key, &record)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, key, nil
	}
	return &record, key, nil
}

// RegisterDID creates the caller's DID record.
func (r *DIDRegistryContract) RegisterDID(ctx contractapi.TransactionContextInterface, documentPointer string) error {
	l := newLedger(ctx)
	caller, err := l.callerID()
	if err != nil {
		return fmt.Errorf("RegisterDID: %w", err)
	}
	didLogger.Infof("Chaincode Call: RegisterDID by '%s'", caller)

	if documentPointer == "" {
		return errInvalidDIDDocument
	}
	existing, key, err := r.getRecord(l, caller)
	if err != nil {
		return fmt.Errorf("RegisterDID: %w", err)
	}
	if existing != nil {
		return errDIDAlreadyRegistered
	}

	now, err := l.txTime()
	if err != nil {
		return fmt.Errorf("RegisterDID: %w", err)
	}
	record := model.DIDRecord{
		ObjectType:      didObjectType,
		Account:         caller,
		DocumentPointer: documentPointer,
		RegisteredAt:    now,
		LastUpdatedAt:   now,
	}
	if err := l.putJSON(key, record); err != nil {
		return fmt.Errorf("RegisterDID: %w", err)
	}

	l.emitEvent("DIDRegistered", map[string]interface{}{
		"account":         caller,
		"documentPointer": documentPointer,
	})
	didLogger.Infof("DID registered for '%s' -> '%s'", caller, documentPointer)
	return nil
}

// UpdateDID replaces the caller's document pointer. Only the record's own
// account can ever reach its slot, so a missing record also covers "not the owner".
func (r *DIDRegistryContract) UpdateDID(ctx contractapi.TransactionContextInterface, newPointer string) error {
	l := newLedger(ctx)
	caller, err := l.callerID()
	if err != nil {
		return fmt.Errorf("UpdateDID: %w", err)
	}
	didLogger.Infof("Chaincode Call: UpdateDID by '%s'", caller)

	record, key, err := r.getRecord(l, caller)
	if err != nil {
		return fmt.Errorf("UpdateDID: %w", err)
	}
	if record == nil {
		return errDIDNotRegistered
	}
	if newPointer == "" {
		return errInvalidDIDDocument
	}

	now, err := l.txTime()
	if err != nil {
		return fmt.Errorf("UpdateDID: %w", err)
	}
	previous := record.DocumentPointer
	record.DocumentPointer = newPointer
	record.LastUpdatedAt = now
	if err := l.putJSON(key, record); err != nil {
		return fmt.Errorf("UpdateDID: %w", err)
	}

	l.emitEvent("DIDUpdated", map[string]interface{}{
		"account":         caller,
		"previousPointer": previous,
		"documentPointer": newPointer,
	})
	didLogger.Infof("DID for '%s' updated '%s' -> '%s'", caller, previous, newPointer)
	return nil
}

// HasDID reports whether account holds a DID. Missing records are not an error.
func (r *DIDRegistryContract) HasDID(ctx contractapi.TransactionContextInterface, account string) (bool, error) {
	l := newLedger(ctx)
	key, err := l.key(didObjectType, account)
	if err != nil {
		return false, fmt.Errorf("HasDID: %w", err)
	}
	found, err := l.exists(key)
	if err != nil {
		return false, fmt.Errorf("HasDID: %w", err)
	}
	didLogger.Debugf("HasDID('%s') = %t", account, found)
	return found, nil
}

// GetDID returns the document pointer registered by account.
func (r *DIDRegistryContract) GetDID(ctx contractapi.TransactionContextInterface, account string) (string, error) {
	record, err := r.GetDIDRecord(ctx, account)
	if err != nil {
		return "", err
	}
	return record.DocumentPointer, nil
}

// GetDIDRecord returns the full record registered by account.
func (r *DIDRegistryContract) GetDIDRecord(ctx contractapi.TransactionContextInterface, account string) (*model.DIDRecord, error) {
	record, _, err := r.getRecord(newLedger(ctx), account)
	if err != nil {
		return nil, fmt.Errorf("GetDIDRecord: %w", err)
	}
	if record == nil {
		return nil, errDIDNotRegistered
	}
	return record, nil
}
