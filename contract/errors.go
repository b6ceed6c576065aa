package contract

import "errors"

// Rejection kinds. Every rejected transaction wraps exactly one of these, so
// callers can match with errors.Is regardless of the reason text.
var (
	ErrInvalidInput          = errors.New("InvalidInput")
	ErrAlreadyRegistered     = errors.New("AlreadyRegistered")
	ErrNotRegistered         = errors.New("NotRegistered")
	ErrExpiryNotInFuture     = errors.New("ExpiryNotInFuture")
	ErrNotFound              = errors.New("NotFound")
	ErrNotLicenseOwner       = errors.New("NotLicenseOwner")
	ErrNotOwner              = errors.New("NotOwner")
	ErrNotAuthorized         = errors.New("NotAuthorized")
	ErrAlreadyRevoked        = errors.New("AlreadyRevoked")
	ErrIncorrectFee          = errors.New("IncorrectFee")
	ErrReceiverNotRegistered = errors.New("ReceiverNotRegistered")
	ErrNothingToWithdraw     = errors.New("NothingToWithdraw")
)

// Rejection is a terminal refusal of a transaction. Error returns only the
// reason string because that is what the peer hands back to the client.
type Rejection struct {
	kind   error
	reason string
}

func reject(kind error, reason string) *Rejection {
	return &Rejection{kind: kind, reason: reason}
}

func (r *Rejection) Error() string { return r.reason }

func (r *Rejection) Unwrap() error { return r.kind }

// Kind returns the name of the rejection kind, e.g. "NotFound".
func (r *Rejection) Kind() string { return r.kind.Error() }

// Reason strings are part of the client contract; do not reword them.
var (
	errInvalidDIDDocument    = reject(ErrInvalidInput, "Invalid DID document")
	errInvalidDocumentCID    = reject(ErrInvalidInput, "Invalid document CID")
	errInvalidMetadataCID    = reject(ErrInvalidInput, "Invalid metadata CID")
	errDIDAlreadyRegistered  = reject(ErrAlreadyRegistered, "DID already registered")
	errDIDNotRegistered      = reject(ErrNotRegistered, "DID not registered")
	errExpiryNotInFuture     = reject(ErrExpiryNotInFuture, "Expiry must be in the future")
	errLicenseNotFound       = reject(ErrNotFound, "License does not exist")
	errTokenNotFound         = reject(ErrNotFound, "Token does not exist")
	errNotLicenseOwner       = reject(ErrNotLicenseOwner, "Not the license owner")
	errLicenseRevoked        = reject(ErrAlreadyRevoked, "License already revoked")
	errIncorrectMintFee      = reject(ErrIncorrectFee, "Incorrect mint fee")
	errIncorrectBurnFee      = reject(ErrIncorrectFee, "Incorrect burn fee")
	errIncorrectTransferFee  = reject(ErrIncorrectFee, "Incorrect transfer fee")
	errNotAuthorizedToBurn   = reject(ErrNotAuthorized, "Not authorized to burn")
	errNotAuthorizedWithdraw = reject(ErrNotAuthorized, "Not authorized to withdraw")
	errAuthorityAlreadySet   = reject(ErrNotAuthorized, "Withdraw authority already set")
	errNotAuthorizedInit     = reject(ErrNotAuthorized, "Not authorized to initialize")
	errNotTokenOwner         = reject(ErrNotOwner, "Not the owner of the token")
	errReceiverHasNoDID      = reject(ErrReceiverNotRegistered, "Receiver has no DID")
	errNothingToWithdraw     = reject(ErrNothingToWithdraw, "Nothing to withdraw")
)
