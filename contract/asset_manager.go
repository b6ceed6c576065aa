package contract

import (
	"fmt"
	"math"

	"identityledger/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var assetLogger = flogging.MustGetLogger("identityledger.assetmanager")

// AssetManagerName is the contract namespace used by clients.
const AssetManagerName = "AssetManager"

// Base fees, in the native value unit attached to a call as paidValue.
const (
	MintFee     uint64 = 1000
	BurnFee     uint64 = 500
	TransferFee uint64 = 250
)

const (
	feeBalanceName = "accrued"
	authorityName  = "withdraw"
)

// FeeCalculator turns a base fee into the amount a caller must pay. It must be
// pure: endorsing peers have to agree on the result.
type FeeCalculator func(baseFee uint64) uint64

// FlatFee charges exactly the base fee.
func FlatFee(baseFee uint64) uint64 { return baseFee }

// AssetOptions tunes an AssetManagerContract.
type AssetOptions struct {
	// FeeCalculator prices each base fee. Nil means FlatFee.
	FeeCalculator FeeCalculator
	// WithdrawAuthority, when set, is the only identity InitLedger accepts.
	// Every endorsing peer must be deployed with the same value.
	WithdrawAuthority string
}

// AssetManagerContract mints, transfers and burns DID-bound non-fungible assets
// and accrues the fees they cost until the withdraw authority collects them.
// @contract:AssetManager
type AssetManagerContract struct {
	contractapi.Contract
	identities        DIDLookup
	feeFor            FeeCalculator
	expectedAuthority string
}

// NewAssetManagerContract creates the asset contract.
func NewAssetManagerContract(identities DIDLookup, opts AssetOptions) *AssetManagerContract {
	calculator := opts.FeeCalculator
	if calculator == nil {
		calculator = FlatFee
	}
	return &AssetManagerContract{
		Contract:          contractapi.Contract{Name: AssetManagerName},
		identities:        identities,
		feeFor:            calculator,
		expectedAuthority: opts.WithdrawAuthority,
	}
}

// --- Fees ---

// CalculateFee returns the amount due for a base fee. Clients query it before paying.
func (c *AssetManagerContract) CalculateFee(baseFee uint64) uint64 {
	return c.feeFor(baseFee)
}

// GetFeeSchedule lists the base fees and what is actually charged for each.
func (c *AssetManagerContract) GetFeeSchedule() model.FeeSchedule {
	return model.FeeSchedule{
		MintFee:              MintFee,
		BurnFee:              BurnFee,
		TransferFee:          TransferFee,
		EffectiveMintFee:     c.CalculateFee(MintFee),
		EffectiveBurnFee:     c.CalculateFee(BurnFee),
		EffectiveTransferFee: c.CalculateFee(TransferFee),
	}
}

// balanceAfterCredit computes the new accrued balance without writing it, so
// the caller can finish every check before touching state.
func (c *AssetManagerContract) balanceAfterCredit(l *ledger, fee uint64) (uint64, error) {
	balance, err := l.getUint64(feeBalanceObjectType, feeBalanceName)
	if err != nil {
		return 0, err
	}
	if balance > math.MaxUint64-fee {
		return 0, fmt.Errorf("fee balance overflow: %d + %d", balance, fee)
	}
	return balance + fee, nil
}

// AccruedFees returns the balance waiting to be withdrawn.
func (c *AssetManagerContract) AccruedFees(ctx contractapi.TransactionContextInterface) (uint64, error) {
	balance, err := newLedger(ctx).getUint64(feeBalanceObjectType, feeBalanceName)
	if err != nil {
		return 0, fmt.Errorf("AccruedFees: %w", err)
	}
	return balance, nil
}

// --- Withdraw authority ---

func (c *AssetManagerContract) getAuthority(l *ledger) (string, string, error) {
	key, err := l.key(authorityObjectType, authorityName)
	if err != nil {
		return "", "", err
	}
	raw, err := l.ctx.GetStub().GetState(key)
	if err != nil {
		return "", "", fmt.Errorf("ledger error reading withdraw authority: %w", err)
	}
	return string(raw), key, nil
}

// InitLedger records the deploying identity as the only account allowed to
// withdraw fees. It succeeds once; the authority cannot be changed afterwards.
// When the contract was built with a pinned WithdrawAuthority, any other
// caller is refused, so the slot cannot be claimed ahead of the deployer.
func (c *AssetManagerContract) InitLedger(ctx contractapi.TransactionContextInterface) error {
	l := newLedger(ctx)
	caller, err := l.callerID()
	if err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}
	assetLogger.Infof("Chaincode Call: InitLedger by '%s'", caller)

	authority, key, err := c.getAuthority(l)
	if err != nil {
		return fmt.Errorf("InitLedger: %w", err)
	}
	if authority != "" {
		assetLogger.Infof("InitLedger: withdraw authority already captured as '%s'", authority)
		return errAuthorityAlreadySet
	}
	if c.expectedAuthority != "" && caller != c.expectedAuthority {
		assetLogger.Warningf("InitLedger: '%s' is not the pinned withdraw authority", caller)
		return errNotAuthorizedInit
	}
	if err := ctx.GetStub().PutState(key, []byte(caller)); err != nil {
		return fmt.Errorf("InitLedger: failed to save withdraw authority: %w", err)
	}

	l.emitEvent("WithdrawAuthoritySet", map[string]interface{}{"authority": caller})
	assetLogger.Infof("InitLedger: '%s' captured as withdraw authority", caller)
	return nil
}

// WithdrawAuthority returns the captured authority, or "" before InitLedger ran.
func (c *AssetManagerContract) WithdrawAuthority(ctx contractapi.TransactionContextInterface) (string, error) {
	authority, _, err := c.getAuthority(newLedger(ctx))
	if err != nil {
		return "", fmt.Errorf("WithdrawAuthority: %w", err)
	}
	return authority, nil
}

// Withdraw pays the whole accrued balance out to the authority and resets it
// to zero. The payout is announced with a FeesWithdrawn event and returned.
func (c *AssetManagerContract) Withdraw(ctx contractapi.TransactionContextInterface) (uint64, error) {
	l := newLedger(ctx)
	caller, err := l.callerID()
	if err != nil {
		return 0, fmt.Errorf("Withdraw: %w", err)
	}
	assetLogger.Infof("Chaincode Call: Withdraw by '%s'", caller)

	authority, _, err := c.getAuthority(l)
	if err != nil {
		return 0, fmt.Errorf("Withdraw: %w", err)
	}
	if authority == "" || caller != authority {
		return 0, errNotAuthorizedWithdraw
	}
	balance, err := l.getUint64(feeBalanceObjectType, feeBalanceName)
	if err != nil {
		return 0, fmt.Errorf("Withdraw: %w", err)
	}
	if balance == 0 {
		return 0, errNothingToWithdraw
	}
	if err := l.putUint64(feeBalanceObjectType, feeBalanceName, 0); err != nil {
		return 0, fmt.Errorf("Withdraw: %w", err)
	}

	l.emitEvent("FeesWithdrawn", map[string]interface{}{
		"recipient": caller,
		"amount":    balance,
	})
	assetLogger.Infof("Withdraw: %d paid out to '%s'", balance, caller)
	return balance, nil
}

// --- Assets ---

// getAssetByID returns nil without error when the asset does not exist.
func (c *AssetManagerContract) getAssetByID(l *ledger, assetID uint64) (*model.Asset, string, error) {
	key, err := l.key(assetObjectType, formatID(assetID))
	if err != nil {
		return nil, "", err
	}
	var asset model.Asset
	found, err := l.getJSON(key, &asset)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, key, nil
	}
	return &asset, key, nil
}

// MintNFT creates an asset owned by the caller and returns its id.
func (c *AssetManagerContract) MintNFT(ctx contractapi.TransactionContextInterface, metadataPointer string, paidValue uint64) (uint64, error) {
	l := newLedger(ctx)
	caller, err := l.callerID()
	if err != nil {
		return 0, fmt.Errorf("MintNFT: %w", err)
	}
	assetLogger.Infof("Chaincode Call: MintNFT by '%s' paying %d", caller, paidValue)

	registered, err := c.identities.HasDID(ctx, caller)
	if err != nil {
		return 0, fmt.Errorf("MintNFT: failed to check DID of '%s': %w", caller, err)
	}
	if !registered {
		return 0, errDIDNotRegistered
	}
	if metadataPointer == "" {
		return 0, errInvalidMetadataCID
	}
	if paidValue != c.CalculateFee(MintFee) {
		return 0, errIncorrectMintFee
	}
	newBalance, err := c.balanceAfterCredit(l, paidValue)
	if err != nil {
		return 0, fmt.Errorf("MintNFT: %w", err)
	}
	now, err := l.txTime()
	if err != nil {
		return 0, fmt.Errorf("MintNFT: %w", err)
	}

	assetID, err := l.allocateID(assetSequence)
	if err != nil {
		return 0, fmt.Errorf("MintNFT: %w", err)
	}
	asset := model.Asset{
		ObjectType:      assetObjectType,
		ID:              assetID,
		Owner:           caller,
		DIDOwner:        caller,
		MetadataPointer: metadataPointer,
		MintedAt:        now,
		LastUpdatedAt:   now,
	}
	key, err := l.key(assetObjectType, formatID(assetID))
	if err != nil {
		return 0, fmt.Errorf("MintNFT: %w", err)
	}
	if err := l.putJSON(key, asset); err != nil {
		return 0, fmt.Errorf("MintNFT: %w", err)
	}
	if err := l.putIndex(assetOwnerObjectType, caller, formatID(assetID)); err != nil {
		return 0, fmt.Errorf("MintNFT: %w", err)
	}
	if err := l.putUint64(feeBalanceObjectType, feeBalanceName, newBalance); err != nil {
		return 0, fmt.Errorf("MintNFT: %w", err)
	}

	l.emitEvent("AssetMinted", map[string]interface{}{
		"assetId":         assetID,
		"owner":           caller,
		"metadataPointer": metadataPointer,
		"fee":             paidValue,
	})
	assetLogger.Infof("Asset %d minted by '%s'", assetID, caller)
	return assetID, nil
}

// BurnNFT deletes an asset. Its id is never reissued.
func (c *AssetManagerContract) BurnNFT(ctx contractapi.TransactionContextInterface, assetID uint64, paidValue uint64) error {
	l := newLedger(ctx)
	caller, err := l.callerID()
	if err != nil {
		return fmt.Errorf("BurnNFT: %w", err)
	}
	assetLogger.Infof("Chaincode Call: BurnNFT %d by '%s' paying %d", assetID, caller, paidValue)

	asset, key, err := c.getAssetByID(l, assetID)
	if err != nil {
		return fmt.Errorf("BurnNFT: %w", err)
	}
	if asset == nil {
		return errTokenNotFound
	}
	if paidValue != c.CalculateFee(BurnFee) {
		return errIncorrectBurnFee
	}
	if caller != asset.Owner {
		return errNotAuthorizedToBurn
	}
	newBalance, err := c.balanceAfterCredit(l, paidValue)
	if err != nil {
		return fmt.Errorf("BurnNFT: %w", err)
	}

	if err := ctx.GetStub().DelState(key); err != nil {
		return fmt.Errorf("BurnNFT: failed to delete asset %d: %w", assetID, err)
	}
	if err := l.delIndex(assetOwnerObjectType, asset.Owner, formatID(assetID)); err != nil {
		return fmt.Errorf("BurnNFT: %w", err)
	}
	if err := l.putUint64(feeBalanceObjectType, feeBalanceName, newBalance); err != nil {
		return fmt.Errorf("BurnNFT: %w", err)
	}

	l.emitEvent("AssetBurned", map[string]interface{}{
		"assetId": assetID,
		"owner":   caller,
		"fee":     paidValue,
	})
	assetLogger.Infof("Asset %d burned by '%s'", assetID, caller)
	return nil
}

// TransferNFT moves an asset from the caller to a DID holder.
func (c *AssetManagerContract) TransferNFT(ctx contractapi.TransactionContextInterface, to string, assetID uint64, paidValue uint64) error {
	l := newLedger(ctx)
	caller, err := l.callerID()
	if err != nil {
		return fmt.Errorf("TransferNFT: %w", err)
	}
	assetLogger.Infof("Chaincode Call: TransferNFT %d from '%s' to '%s' paying %d", assetID, caller, to, paidValue)

	asset, key, err := c.getAssetByID(l, assetID)
	if err != nil {
		return fmt.Errorf("TransferNFT: %w", err)
	}
	if asset == nil {
		return errTokenNotFound
	}
	if paidValue != c.CalculateFee(TransferFee) {
		return errIncorrectTransferFee
	}
	if caller != asset.Owner {
		return errNotTokenOwner
	}
	receiverRegistered, err := c.identities.HasDID(ctx, to)
	if err != nil {
		return fmt.Errorf("TransferNFT: failed to check DID of receiver '%s': %w", to, err)
	}
	if !receiverRegistered {
		return errReceiverHasNoDID
	}
	newBalance, err := c.balanceAfterCredit(l, paidValue)
	if err != nil {
		return fmt.Errorf("TransferNFT: %w", err)
	}
	now, err := l.txTime()
	if err != nil {
		return fmt.Errorf("TransferNFT: %w", err)
	}

	from := asset.Owner
	asset.Owner = to
	asset.DIDOwner = to
	asset.LastUpdatedAt = now
	if err := l.putJSON(key, asset); err != nil {
		return fmt.Errorf("TransferNFT: %w", err)
	}
	if err := l.delIndex(assetOwnerObjectType, from, formatID(assetID)); err != nil {
		return fmt.Errorf("TransferNFT: %w", err)
	}
	if err := l.putIndex(assetOwnerObjectType, to, formatID(assetID)); err != nil {
		return fmt.Errorf("TransferNFT: %w", err)
	}
	if err := l.putUint64(feeBalanceObjectType, feeBalanceName, newBalance); err != nil {
		return fmt.Errorf("TransferNFT: %w", err)
	}

	l.emitEvent("AssetTransferred", map[string]interface{}{
		"assetId": assetID,
		"from":    from,
		"to":      to,
		"fee":     paidValue,
	})
	assetLogger.Infof("Asset %d transferred from '%s' to '%s'", assetID, from, to)
	return nil
}

// GetAsset returns the stored asset.
func (c *AssetManagerContract) GetAsset(ctx contractapi.TransactionContextInterface, assetID uint64) (*model.Asset, error) {
	asset, _, err := c.getAssetByID(newLedger(ctx), assetID)
	if err != nil {
		return nil, fmt.Errorf("GetAsset: %w", err)
	}
	if asset == nil {
		return nil, errTokenNotFound
	}
	return asset, nil
}

// TokenMetadata returns the metadata pointer fixed at mint time.
func (c *AssetManagerContract) TokenMetadata(ctx contractapi.TransactionContextInterface, assetID uint64) (string, error) {
	asset, err := c.GetAsset(ctx, assetID)
	if err != nil {
		return "", err
	}
	return asset.MetadataPointer, nil
}

// DIDOwnerOf returns the DID-bound owner of an asset.
func (c *AssetManagerContract) DIDOwnerOf(ctx contractapi.TransactionContextInterface, assetID uint64) (string, error) {
	asset, err := c.GetAsset(ctx, assetID)
	if err != nil {
		return "", err
	}
	return asset.DIDOwner, nil
}

// OwnerOf returns the current owner of an asset.
func (c *AssetManagerContract) OwnerOf(ctx contractapi.TransactionContextInterface, assetID uint64) (string, error) {
	asset, err := c.GetAsset(ctx, assetID)
	if err != nil {
		return "", err
	}
	return asset.Owner, nil
}

// GetAssetsByOwner lists the assets currently held by owner, by ascending id.
func (c *AssetManagerContract) GetAssetsByOwner(ctx contractapi.TransactionContextInterface, owner string) ([]model.Asset, error) {
	l := newLedger(ctx)
	ids, err := l.indexedIDs(assetOwnerObjectType, owner)
	if err != nil {
		return nil, fmt.Errorf("GetAssetsByOwner: %w", err)
	}
	assets := []model.Asset{}
	for _, id := range ids {
		asset, _, err := c.getAssetByID(l, id)
		if err != nil {
			return nil, fmt.Errorf("GetAssetsByOwner: %w", err)
		}
		if asset == nil {
			assetLogger.Warningf("GetAssetsByOwner: index for '%s' points at missing asset %d. Skipping.", owner, id)
			continue
		}
		assets = append(assets, *asset)
	}
	return assets, nil
}

// TotalMinted returns how many asset ids have been allocated, burned ones included.
func (c *AssetManagerContract) TotalMinted(ctx contractapi.TransactionContextInterface) (uint64, error) {
	count, err := newLedger(ctx).getUint64(sequenceObjectType, assetSequence)
	if err != nil {
		return 0, fmt.Errorf("TotalMinted: %w", err)
	}
	return count, nil
}
