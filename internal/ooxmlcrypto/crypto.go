// Package ooxmlcrypto implements MS-OFFCRYPTO password-based decryption for
// OOXML spreadsheet packages: the Standard and Agile schemes layered on top
// of an OLE2 Compound File container.
package ooxmlcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"

	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

// newHMAC returns an HMAC hash.Hash keyed with key, using SHA-512 when the
// descriptor requests it and SHA-1 otherwise.
func newHMAC(alg hashAlgorithm, key []byte) hash.Hash {
	if alg == hashSHA512 {
		return hmac.New(sha512.New, key)
	}
	return hmac.New(sha1.New, key)
}

func sha1Sum(b []byte) []byte {
	sum := sha1.Sum(b)
	return sum[:]
}

func sha512Sum(b []byte) []byte {
	sum := sha512.Sum512(b)
	return sum[:]
}

// aesECBDecrypt decrypts ciphertext with AES in ECB mode. Go's
// crypto/cipher deliberately ships no ECB BlockMode, so each 16-byte block
// is decrypted directly through the cipher.Block interface.
func aesECBDecrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ooxmlerrors.ErrCrypto, err)
	}

	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of the AES block size", ooxmlerrors.ErrCrypto)
	}

	plaintext := make([]byte, len(ciphertext))
	for off := 0; off < len(ciphertext); off += aes.BlockSize {
		block.Decrypt(plaintext[off:off+aes.BlockSize], ciphertext[off:off+aes.BlockSize])
	}
	return plaintext, nil
}

// aesCBCDecrypt decrypts ciphertext with AES-CBC. No padding is stripped;
// callers truncate to the logical size they expect.
func aesCBCDecrypt(ciphertext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ooxmlerrors.ErrCrypto, err)
	}

	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext is not a multiple of the AES block size", ooxmlerrors.ErrCrypto)
	}
	if len(iv) < aes.BlockSize {
		return nil, fmt.Errorf("%w: IV shorter than the AES block size", ooxmlerrors.ErrCrypto)
	}

	plaintext := make([]byte, len(ciphertext))
	mode := cipher.NewCBCDecrypter(block, iv[:aes.BlockSize])
	mode.CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

func base64Decode(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ooxmlerrors.ErrCrypto, err)
	}
	return b, nil
}
