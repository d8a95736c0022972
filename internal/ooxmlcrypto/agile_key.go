package ooxmlcrypto

import (
	"bytes"
	"encoding/binary"

	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

// Fixed 8-byte block keys used to derive the verifier-input, verifier-hash,
// and key-value blocks from H_n (MS-OFFCRYPTO 2.3.4.9-2.3.4.11).
var (
	blockKeyVerifierInput = [8]byte{0xfe, 0xa7, 0xd2, 0x76, 0x3b, 0x4b, 0x9e, 0x79}
	blockKeyVerifierHash  = [8]byte{0xd7, 0xaa, 0x0f, 0x6d, 0x30, 0x61, 0x34, 0x4e}
	blockKeyKeyValue      = [8]byte{0x14, 0x6e, 0x0b, 0xe7, 0xab, 0xac, 0xd0, 0xd6}

	// Data-integrity HMAC block keys (MS-OFFCRYPTO 2.3.4.13). Not exercised
	// by original_source, which never implemented integrity verification;
	// these are the published MS-OFFCRYPTO constants.
	blockKeyHmacKey   = [8]byte{0x5f, 0xb2, 0xad, 0x01, 0x0c, 0xb9, 0xe1, 0xf6}
	blockKeyHmacValue = [8]byte{0xa0, 0x67, 0x7f, 0x02, 0xb2, 0x2c, 0x84, 0x33}
)

// deriveAgileHn runs the Agile scheme's H_0/H_n spin loop: H_0 = H(salt ||
// password), then H_i+1 = H(LE32(i) || H_i) for i = 0..spinCount-1.
func deriveAgileHn(salt, passwordUTF16LE []byte, spinCount int, hash hashAlgorithm) []byte {
	h := hash.sum(append(append([]byte{}, salt...), passwordUTF16LE...))

	buf := make([]byte, 4+len(h))
	for i := 0; i < spinCount; i++ {
		binary.LittleEndian.PutUint32(buf[:4], uint32(i))
		copy(buf[4:], h)
		h = hash.sum(buf)
	}
	return h
}

// deriveAgileBlockKey combines hN with an 8-byte block key, hashes the
// result, and truncates to keyBits/8 bytes, per calculate_block in the
// Agile key-derivation algorithm.
func deriveAgileBlockKey(hN []byte, block [8]byte, keyBits int, hash hashAlgorithm) []byte {
	combined := append(append([]byte{}, hN...), block[:]...)
	key := hash.sum(combined)
	keyLen := keyBits / 8
	if keyLen > len(key) {
		keyLen = len(key)
	}
	return key[:keyLen]
}

// verifyAgilePassword decrypts the verifier-hash-input block, hashes it,
// and compares against the decrypted verifier-hash-value block.
func verifyAgilePassword(d *agileDescriptor, hN []byte) error {
	inputKey := deriveAgileBlockKey(hN, blockKeyVerifierInput, d.KeyBits, d.KeyEncryptorHash)
	hashInput, err := aesCBCDecrypt(d.VerifierHashIn, inputKey, d.KeyEncryptorSalt)
	if err != nil {
		return err
	}
	calculated := d.KeyEncryptorHash.sum(hashInput)

	valueKey := deriveAgileBlockKey(hN, blockKeyVerifierHash, d.KeyBits, d.KeyEncryptorHash)
	expected, err := aesCBCDecrypt(d.VerifierHashVal, valueKey, d.KeyEncryptorSalt)
	if err != nil {
		return err
	}
	if len(expected) < len(calculated) {
		return ooxmlerrors.ErrBadPassword
	}
	if !bytes.Equal(calculated, expected[:len(calculated)]) {
		return ooxmlerrors.ErrBadPassword
	}
	return nil
}

// unwrapAgileKey decrypts the package's intermediate key from
// encryptedKeyValue using the key-value block key.
func unwrapAgileKey(d *agileDescriptor, hN []byte) ([]byte, error) {
	keyValueKey := deriveAgileBlockKey(hN, blockKeyKeyValue, d.KeyBits, d.KeyEncryptorHash)
	return aesCBCDecrypt(d.EncryptedKeyValue, keyValueKey, d.KeyEncryptorSalt)
}

// verifyAgileIntegrity recomputes the dataIntegrity HMAC over the decrypted
// package and compares it against the value stored in EncryptionInfo. Not
// performed by original_source, which has no integrity check at all; this
// is a supplemented feature.
func verifyAgileIntegrity(d *agileDescriptor, key, decryptedPackage []byte) error {
	if len(d.HmacKeyEncrypted) == 0 || len(d.HmacValueEncrypted) == 0 {
		return nil
	}

	hmacKeyEncKey := deriveAgileBlockKey(key, blockKeyHmacKey, d.KeyBits, d.HashAlgorithm)
	hmacKey, err := aesCBCDecrypt(d.HmacKeyEncrypted, hmacKeyEncKey, d.SaltValue)
	if err != nil {
		return err
	}

	hmacValueEncKey := deriveAgileBlockKey(key, blockKeyHmacValue, d.KeyBits, d.HashAlgorithm)
	expectedHmac, err := aesCBCDecrypt(d.HmacValueEncrypted, hmacValueEncKey, d.SaltValue)
	if err != nil {
		return err
	}

	mac := newHMAC(d.HashAlgorithm, hmacKey)
	mac.Write(decryptedPackage)
	calculated := mac.Sum(nil)

	if len(expectedHmac) < len(calculated) {
		return ooxmlerrors.ErrBadPassword
	}
	if !bytes.Equal(calculated, expectedHmac[:len(calculated)]) {
		return ooxmlerrors.ErrBadPassword
	}
	return nil
}
