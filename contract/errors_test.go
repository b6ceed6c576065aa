package contract

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRejectionMatchesKind(t *testing.T) {
	wrapped := fmt.Errorf("MintNFT: %w", errIncorrectMintFee)

	assert.ErrorIs(t, wrapped, ErrIncorrectFee)
	assert.NotErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, "Incorrect mint fee", errIncorrectMintFee.Error())

	var rejection *Rejection
	assert.True(t, errors.As(wrapped, &rejection))
	assert.Equal(t, "IncorrectFee", rejection.Kind())
}

func TestNotFoundReasonsDiffer(t *testing.T) {
	assert.ErrorIs(t, errLicenseNotFound, ErrNotFound)
	assert.ErrorIs(t, errTokenNotFound, ErrNotFound)
	assert.NotEqual(t, errLicenseNotFound.Error(), errTokenNotFound.Error())
}
