package ooxmlcrypto

import (
	"errors"
	"fmt"

	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

// CryptoError pairs one of the sentinel kinds in ooxmlerrors with the
// underlying cause, so callers can classify a failure with errors.Is while
// still seeing the detail in the error string.
type CryptoError struct {
	Kind  error
	Cause error
}

func (e *CryptoError) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *CryptoError) Unwrap() error {
	return e.Kind
}

func wrapErr(kind error, cause error) error {
	if cause == nil {
		return &CryptoError{Kind: kind}
	}
	return &CryptoError{Kind: kind, Cause: cause}
}

// classify maps an error already carrying one of ooxmlerrors' sentinels
// (via %w wrapping deeper in the package) to a *CryptoError, falling back
// to ErrCrypto for anything unrecognized.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *CryptoError
	if errors.As(err, &ce) {
		return ce
	}

	for _, kind := range []error{
		ooxmlerrors.ErrEmptyInput,
		ooxmlerrors.ErrNotCompoundFile,
		ooxmlerrors.ErrMissingStream,
		ooxmlerrors.ErrBadHeader,
		ooxmlerrors.ErrUnsupportedVersion,
		ooxmlerrors.ErrUnsupportedExtensibleEncryption,
		ooxmlerrors.ErrNotOOXML,
		ooxmlerrors.ErrInvalidCipher,
		ooxmlerrors.ErrInvalidHash,
		ooxmlerrors.ErrInvalidProviderType,
		ooxmlerrors.ErrInvalidCSP,
		ooxmlerrors.ErrBadEncryptionInfo,
		ooxmlerrors.ErrUnsupported,
		ooxmlerrors.ErrNoPasswordKey,
		ooxmlerrors.ErrBadPassword,
		ooxmlerrors.ErrCrypto,
		ooxmlerrors.ErrTruncatedCiphertext,
	} {
		if errors.Is(err, kind) {
			return wrapErr(kind, err)
		}
	}

	return wrapErr(ooxmlerrors.ErrCrypto, err)
}
