// File: model/identities.go
package model

import "time"

// DIDRecord binds an account to its decentralized identity document.
type DIDRecord struct {
	ObjectType      string    `json:"objectType"`      // Composite key object type (DID)
	Account         string    `json:"account"`         // Client identity that owns the record
	DocumentPointer string    `json:"documentPointer"` // Opaque content-addressed document reference
	RegisteredAt    time.Time `json:"registeredAt"`    // Timestamp of the registering transaction
	LastUpdatedAt   time.Time `json:"lastUpdatedAt"`   // Timestamp of the last pointer change
}
