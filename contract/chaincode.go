package contract

import (
	"fmt"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-contract-api-go/metadata"
)

// ChaincodeTitle and ChaincodeVersion are published in the chaincode metadata.
const (
	ChaincodeTitle   = "identityledger"
	ChaincodeVersion = "1.0.0"
)

// NewContracts wires the license ledger and asset manager to the same DID
// registry. The dependency only points at the registry, never back.
func NewContracts(opts AssetOptions) (*DIDRegistryContract, *LicenseLedgerContract, *AssetManagerContract) {
	registry := NewDIDRegistryContract()
	return registry, NewLicenseLedgerContract(registry), NewAssetManagerContract(registry, opts)
}

// NewChaincode packages the three contracts into one chaincode so that every
// cross-contract read runs on the stub of the enclosing transaction.
func NewChaincode(opts AssetOptions) (*contractapi.ContractChaincode, error) {
	registry, licenses, assets := NewContracts(opts)
	cc, err := contractapi.NewChaincode(registry, licenses, assets)
	if err != nil {
		return nil, fmt.Errorf("error creating identityledger chaincode: %w", err)
	}
	cc.DefaultContract = DIDRegistryName
	cc.Info = metadata.InfoMetadata{
		Title:       ChaincodeTitle,
		Version:     ChaincodeVersion,
		Description: "DID registry, license ledger and fee-bearing asset manager",
	}
	return cc, nil
}
