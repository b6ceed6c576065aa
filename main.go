package main

import (
	"identityledger/config"
	"identityledger/contract"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("identityledger.main")

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Error loading chaincode configuration: " + err.Error())
	}
	flogging.ActivateSpec(cfg.LogSpec)
	if cfg.WithdrawAuthority != "" {
		logger.Infof("Withdraw authority pinned to '%s'", cfg.WithdrawAuthority)
	}

	cc, err := contract.NewChaincode(contract.AssetOptions{WithdrawAuthority: cfg.WithdrawAuthority})
	if err != nil {
		panic("Error creating identityledger chaincode: " + err.Error())
	}

	if !cfg.ExternalService() {
		logger.Info("Starting identityledger chaincode under peer control")
		if err := cc.Start(); err != nil {
			panic("Error starting chaincode: " + err.Error())
		}
		return
	}

	server, err := newChaincodeServer(cfg, cc)
	if err != nil {
		panic("Error configuring chaincode server: " + err.Error())
	}
	logger.Infof("Starting identityledger chaincode service '%s' on %s (TLS enabled: %t)", cfg.ChaincodeID, cfg.ServerAddress, cfg.TLS.Enabled)
	if err := server.Start(); err != nil {
		panic("Error starting chaincode server: " + err.Error())
	}
}

// newChaincodeServer builds the chaincode-as-a-service listener the peer dials.
func newChaincodeServer(cfg *config.Config, cc *contractapi.ContractChaincode) (*shim.ChaincodeServer, error) {
	material, err := cfg.ReadTLSMaterial()
	if err != nil {
		return nil, err
	}
	tlsProps := shim.TLSProperties{Disabled: material == nil}
	if material != nil {
		tlsProps.Key = material.Key
		tlsProps.Cert = material.Cert
		tlsProps.ClientCACerts = material.ClientCACert
	}
	return &shim.ChaincodeServer{
		CCID:     cfg.ChaincodeID,
		Address:  cfg.ServerAddress,
		CC:       cc,
		TLSProps: tlsProps,
	}, nil
}
