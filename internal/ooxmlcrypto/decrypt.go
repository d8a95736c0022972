package ooxmlcrypto

import (
	"context"
	"unicode/utf16"

	"github.com/deploymenttheory/go-ooxmlcrypt/internal/cfb"
	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

const (
	streamEncryptionInfo    = "EncryptionInfo"
	streamEncryptedPackage  = "EncryptedPackage"
)

// Options controls optional behavior of DecryptWithOptions.
type Options struct {
	// VerifyIntegrity recomputes the Agile scheme's dataIntegrity HMAC over
	// the decrypted package before returning it. Ignored for the Standard
	// scheme, which carries no such check.
	VerifyIntegrity bool

	// Concurrency is the number of workers used to decrypt Agile OLE
	// segments in parallel. Zero or one decrypts sequentially.
	Concurrency int
}

// Decrypt opens container as an OLE2 Compound File, reads its
// EncryptionInfo/EncryptedPackage streams, and returns the decrypted OOXML
// package bytes using password. It is equivalent to DecryptWithOptions with
// the zero Options value.
func Decrypt(container []byte, password string) ([]byte, error) {
	return DecryptWithOptions(container, password, Options{})
}

// DecryptWithOptions is Decrypt with explicit control over integrity
// verification and segment concurrency.
func DecryptWithOptions(container []byte, password string, opts Options) ([]byte, error) {
	plaintext, err := decryptWithOptions(container, password, opts)
	if err != nil {
		return nil, classify(err)
	}
	return plaintext, nil
}

func decryptWithOptions(container []byte, password string, opts Options) ([]byte, error) {
	if len(container) == 0 {
		return nil, ooxmlerrors.ErrEmptyInput
	}

	storage, err := cfb.Open(container)
	if err != nil {
		return nil, err
	}

	encryptionInfo, err := storage.ReadStream(streamEncryptionInfo)
	if err != nil {
		return nil, err
	}

	encryptedPackage, err := storage.ReadStream(streamEncryptedPackage)
	if err != nil {
		return nil, err
	}

	scheme, body, err := parseHeader(encryptionInfo)
	if err != nil {
		return nil, err
	}

	passwordUTF16LE := utf8ToUTF16LE(password)

	switch scheme {
	case SchemeStandard:
		return decryptStandardPackage(body, passwordUTF16LE, encryptedPackage)
	case SchemeAgile:
		return decryptAgilePackage(body, passwordUTF16LE, encryptedPackage, opts)
	default:
		return nil, ooxmlerrors.ErrUnsupported
	}
}

func decryptStandardPackage(body, passwordUTF16LE, encryptedPackage []byte) ([]byte, error) {
	desc, err := parseStandardDescriptor(body)
	if err != nil {
		return nil, err
	}

	key := deriveStandardKey(desc, passwordUTF16LE)

	if err := verifyStandardPassword(desc, key); err != nil {
		return nil, err
	}

	return decryptStandard(desc, key, encryptedPackage)
}

func decryptAgilePackage(body, passwordUTF16LE, encryptedPackage []byte, opts Options) ([]byte, error) {
	desc, err := parseAgileDescriptor(body)
	if err != nil {
		return nil, err
	}

	hN := deriveAgileHn(desc.KeyEncryptorSalt, passwordUTF16LE, desc.SpinCount, desc.KeyEncryptorHash)

	if err := verifyAgilePassword(desc, hN); err != nil {
		return nil, err
	}

	key, err := unwrapAgileKey(desc, hN)
	if err != nil {
		return nil, err
	}

	var plaintext []byte
	if opts.Concurrency > 1 {
		plaintext, err = decryptSegmentsConcurrent(context.Background(), desc, key, encryptedPackage, opts.Concurrency)
	} else {
		plaintext, err = decryptSegmentsSequential(desc, key, encryptedPackage)
	}
	if err != nil {
		return nil, err
	}

	if opts.VerifyIntegrity {
		if err := verifyAgileIntegrity(desc, key, plaintext); err != nil {
			return nil, err
		}
	}

	return plaintext, nil
}

// utf8ToUTF16LE transcodes a UTF-8 password into little-endian UTF-16 code
// units, the form MS-OFFCRYPTO hashes the password in.
func utf8ToUTF16LE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		out[i*2] = byte(u)
		out[i*2+1] = byte(u >> 8)
	}
	return out
}
