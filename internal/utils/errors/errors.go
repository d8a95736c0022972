// Package errors collects the sentinel errors returned by this module's
// container, header, and key-derivation layers.
package errors

import "errors"

var (
	// Container errors
	ErrEmptyInput      = errors.New("input is empty")
	ErrNotCompoundFile = errors.New("input is not an OLE2 compound file")
	ErrMissingStream   = errors.New("required stream not found in compound file")

	// EncryptionInfo header errors
	ErrBadHeader                       = errors.New("malformed EncryptionInfo header")
	ErrUnsupportedVersion              = errors.New("unsupported EncryptionInfo version")
	ErrUnsupportedExtensibleEncryption = errors.New("extensible encryption is not supported")
	ErrNotOOXML                        = errors.New("input is not an encrypted OOXML package")

	// Descriptor validation errors
	ErrInvalidCipher       = errors.New("unsupported or invalid cipher algorithm")
	ErrInvalidHash         = errors.New("unsupported or invalid hash algorithm")
	ErrInvalidProviderType = errors.New("unsupported cryptographic provider type")
	ErrInvalidCSP          = errors.New("unrecognized cryptographic service provider name")
	ErrBadEncryptionInfo   = errors.New("malformed encryption descriptor")
	ErrUnsupported         = errors.New("unsupported encryption configuration")

	// Key derivation and password errors
	ErrNoPasswordKey = errors.New("no password-based key encryptor present")
	ErrBadPassword   = errors.New("password verification failed")

	// Decryption errors
	ErrCrypto               = errors.New("cryptographic operation failed")
	ErrTruncatedCiphertext  = errors.New("ciphertext is shorter than the declared plaintext size")
)
