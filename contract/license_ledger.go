package contract

import (
	"fmt"

	"identityledger/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var licenseLogger = flogging.MustGetLogger("identityledger.licenseledger")

// LicenseLedgerName is the contract namespace used by clients.
const LicenseLedgerName = "LicenseLedger"

// LicenseLedgerContract keeps an append-only sequence of licenses issued by DID holders.
// @contract:LicenseLedger
type LicenseLedgerContract struct {
	contractapi.Contract
	identities DIDLookup
}

// NewLicenseLedgerContract creates the ledger gated on identities. The lookup
// is fixed for the lifetime of the contract.
func NewLicenseLedgerContract(identities DIDLookup) *LicenseLedgerContract {
	return &LicenseLedgerContract{
		Contract:   contractapi.Contract{Name: LicenseLedgerName},
		identities: identities,
	}
}

// getLicenseByID returns nil without error when the id was never allocated.
func (c *LicenseLedgerContract) getLicenseByID(l *ledger, licenseID uint64) (*model.License, string, error) {
	key, err := l.key(licenseObjectType, formatID(licenseID))
	if err != nil {
		return nil, "", err
	}
	var license model.License
	found, err := l.getJSON(key, &license)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, key, nil
	}
	return &license, key, nil
}

// CreateLicense issues a license from the caller to licensee and returns its id.
// The licensee does not need a DID.
func (c *LicenseLedgerContract) CreateLicense(ctx contractapi.TransactionContextInterface, licensee string, expiry int64, documentPointer string) (uint64, error) {
	l := newLedger(ctx)
	caller, err := l.callerID()
	if err != nil {
		return 0, fmt.Errorf("CreateLicense: %w", err)
	}
	licenseLogger.Infof("Chaincode Call: CreateLicense by '%s' for '%s' expiring %d", caller, licensee, expiry)

	registered, err := c.identities.HasDID(ctx, caller)
	if err != nil {
		return 0, fmt.Errorf("CreateLicense: failed to check DID of '%s': %w", caller, err)
	}
	if !registered {
		return 0, errDIDNotRegistered
	}
	now, err := l.txTime()
	if err != nil {
		return 0, fmt.Errorf("CreateLicense: %w", err)
	}
	if expiry <= now.Unix() {
		return 0, errExpiryNotInFuture
	}
	if documentPointer == "" {
		return 0, errInvalidDocumentCID
	}

	licenseID, err := l.allocateID(licenseSequence)
	if err != nil {
		return 0, fmt.Errorf("CreateLicense: %w", err)
	}
	license := model.License{
		ObjectType:      licenseObjectType,
		ID:              licenseID,
		Licensor:        caller,
		Licensee:        licensee,
		Expiry:          expiry,
		DocumentPointer: documentPointer,
		Revoked:         false,
		CreatedAt:       now,
	}
	key, err := l.key(licenseObjectType, formatID(licenseID))
	if err != nil {
		return 0, fmt.Errorf("CreateLicense: %w", err)
	}
	if err := l.putJSON(key, license); err != nil {
		return 0, fmt.Errorf("CreateLicense: %w", err)
	}
	if err := l.putIndex(licenseHolderObjectType, licensee, formatID(licenseID)); err != nil {
		return 0, fmt.Errorf("CreateLicense: %w", err)
	}

	l.emitEvent("LicenseCreated", map[string]interface{}{
		"licenseId":       licenseID,
		"licensor":        caller,
		"licensee":        licensee,
		"expiry":          expiry,
		"documentPointer": documentPointer,
	})
	licenseLogger.Infof("License %d created by '%s' for '%s'", licenseID, caller, licensee)
	return licenseID, nil
}

// RevokeLicense permanently revokes a license. Only the licensee, the holder
// relinquishing it, may do so.
func (c *LicenseLedgerContract) RevokeLicense(ctx contractapi.TransactionContextInterface, licenseID uint64) error {
	l := newLedger(ctx)
	caller, err := l.callerID()
	if err != nil {
		return fmt.Errorf("RevokeLicense: %w", err)
	}
	licenseLogger.Infof("Chaincode Call: RevokeLicense %d by '%s'", licenseID, caller)

	license, key, err := c.getLicenseByID(l, licenseID)
	if err != nil {
		return fmt.Errorf("RevokeLicense: %w", err)
	}
	if license == nil {
		return errLicenseNotFound
	}
	if caller != license.Licensee {
		return errNotLicenseOwner
	}
	if license.Revoked {
		return errLicenseRevoked
	}

	now, err := l.txTime()
	if err != nil {
		return fmt.Errorf("RevokeLicense: %w", err)
	}
	license.Revoked = true
	license.RevokedAt = &now
	if err := l.putJSON(key, license); err != nil {
		return fmt.Errorf("RevokeLicense: %w", err)
	}

	l.emitEvent("LicenseRevoked", map[string]interface{}{
		"licenseId": licenseID,
		"licensee":  caller,
	})
	licenseLogger.Infof("License %d revoked by holder '%s'", licenseID, caller)
	return nil
}

// CheckValidLicense reports whether a license exists, is unrevoked and has not
// expired as of this transaction's timestamp. Unknown ids are simply invalid.
func (c *LicenseLedgerContract) CheckValidLicense(ctx contractapi.TransactionContextInterface, licenseID uint64) (bool, error) {
	l := newLedger(ctx)
	license, _, err := c.getLicenseByID(l, licenseID)
	if err != nil {
		return false, fmt.Errorf("CheckValidLicense: %w", err)
	}
	if license == nil {
		licenseLogger.Debugf("CheckValidLicense: license %d does not exist", licenseID)
		return false, nil
	}
	now, err := l.txTime()
	if err != nil {
		return false, fmt.Errorf("CheckValidLicense: %w", err)
	}
	return license.IsValidAt(now), nil
}

// GetLicense returns the holder, expiry, document and revocation flag of a license.
func (c *LicenseLedgerContract) GetLicense(ctx contractapi.TransactionContextInterface, licenseID uint64) (*model.LicenseView, error) {
	license, err := c.GetLicenseRecord(ctx, licenseID)
	if err != nil {
		return nil, err
	}
	view := license.View()
	return &view, nil
}

// GetLicenseRecord returns the stored license including its licensor.
func (c *LicenseLedgerContract) GetLicenseRecord(ctx contractapi.TransactionContextInterface, licenseID uint64) (*model.License, error) {
	license, _, err := c.getLicenseByID(newLedger(ctx), licenseID)
	if err != nil {
		return nil, fmt.Errorf("GetLicenseRecord: %w", err)
	}
	if license == nil {
		return nil, errLicenseNotFound
	}
	return license, nil
}

// GetLicensesByHolder lists every license granted to holder, revoked or not, by ascending id.
func (c *LicenseLedgerContract) GetLicensesByHolder(ctx contractapi.TransactionContextInterface, holder string) ([]model.License, error) {
	l := newLedger(ctx)
	ids, err := l.indexedIDs(licenseHolderObjectType, holder)
	if err != nil {
		return nil, fmt.Errorf("GetLicensesByHolder: %w", err)
	}
	licenses := []model.License{}
	for _, id := range ids {
		license, _, err := c.getLicenseByID(l, id)
		if err != nil {
			return nil, fmt.Errorf("GetLicensesByHolder: %w", err)
		}
		if license == nil {
			licenseLogger.Warningf("GetLicensesByHolder: index for '%s' points at missing license %d. Skipping.", holder, id)
			continue
		}
		licenses = append(licenses, *license)
	}
	licenseLogger.Debugf("GetLicensesByHolder: returning %d licenses for '%s'", len(licenses), holder)
	return licenses, nil
}

// LicenseCount returns how many license ids have been allocated.
func (c *LicenseLedgerContract) LicenseCount(ctx contractapi.TransactionContextInterface) (uint64, error) {
	count, err := newLedger(ctx).getUint64(sequenceObjectType, licenseSequence)
	if err != nil {
		return 0, fmt.Errorf("LicenseCount: %w", err)
	}
	return count, nil
}
