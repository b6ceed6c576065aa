package model

import "time"

// Asset is a non-fungible token whose owner must always hold a DID.
type Asset struct {
	ObjectType      string    `json:"objectType"` // "Asset"
	ID              uint64    `json:"id"`
	Owner           string    `json:"owner"`
	DIDOwner        string    `json:"didOwner"`        // Mirrors Owner, moved together on transfer
	MetadataPointer string    `json:"metadataPointer"` // Immutable after mint
	MintedAt        time.Time `json:"mintedAt"`
	LastUpdatedAt   time.Time `json:"lastUpdatedAt"`
}

// FeeSchedule lists the base fee constants and the amounts actually charged.
type FeeSchedule struct {
	MintFee              uint64 `json:"mintFee"`
	BurnFee              uint64 `json:"burnFee"`
	TransferFee          uint64 `json:"transferFee"`
	EffectiveMintFee     uint64 `json:"effectiveMintFee"`
	EffectiveBurnFee     uint64 `json:"effectiveBurnFee"`
	EffectiveTransferFee uint64 `json:"effectiveTransferFee"`
}
