package model

import "time"

// License is a time-bounded grant issued by a DID holder to a licensee.
// Validity is never stored; it is derived from Revoked and Expiry at query time.
type License struct {
	ObjectType      string     `json:"objectType"` // "License"
	ID              uint64     `json:"id"`
	Licensor        string     `json:"licensor"`        // Issuer, held a DID at creation time
	Licensee        string     `json:"licensee"`        // Holder, the only party allowed to revoke
	Expiry          int64      `json:"expiry"`          // Unix seconds, strictly after CreatedAt
	DocumentPointer string     `json:"documentPointer"` // Opaque license document reference
	Revoked         bool       `json:"revoked"`
	CreatedAt       time.Time  `json:"createdAt"`
	RevokedAt       *time.Time `json:"revokedAt,omitempty" metadata:"revokedAt,optional"` // Nil until revoked
}

// IsValidAt reports whether the license is unrevoked and unexpired at now.
func (l *License) IsValidAt(now time.Time) bool {
	return !l.Revoked && now.Unix() < l.Expiry
}

// LicenseView is the holder-facing projection returned by GetLicense.
type LicenseView struct {
	Owner           string `json:"owner"` // The licensee
	Expiry          int64  `json:"expiry"`
	DocumentPointer string `json:"documentPointer"`
	Revoked         bool   `json:"revoked"`
}

// View projects the record onto the fields exposed by GetLicense.
func (l *License) View() LicenseView {
	return LicenseView{
		Owner:           l.Licensee,
		Expiry:          l.Expiry,
		DocumentPointer: l.DocumentPointer,
		Revoked:         l.Revoked,
	}
}
