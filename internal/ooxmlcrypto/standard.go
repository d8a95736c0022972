package ooxmlcrypto

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf16"

	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

const standardSpinCount = 50000

var standardCSPNames = map[string]bool{
	"Microsoft Enhanced RSA and AES Cryptographic Provider":               true,
	"Microsoft Enhanced RSA and AES Cryptographic Provider (Prototype)":   true,
}

type standardDescriptor struct {
	AlgID            uint32
	AlgIDHash        uint32
	KeyBits          uint32
	ProviderType     uint32
	CSPName          string
	Salt             []byte
	VerifierHashIn   []byte
	VerifierHashVal  []byte
}

func (d *standardDescriptor) keyBytes() int {
	return int(d.KeyBits / 8)
}

// parseStandardDescriptor parses the binary Standard EncryptionInfo body
// per the MS-OFFCRYPTO EncryptionHeader/EncryptionVerifier layout.
func parseStandardDescriptor(body []byte) (*standardDescriptor, error) {
	r := bytes.NewReader(body)

	readU32 := func() (uint32, error) {
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, fmt.Errorf("%w: truncated header", ooxmlerrors.ErrBadEncryptionInfo)
		}
		return v, nil
	}

	headerLength, err := readU32()
	if err != nil {
		return nil, err
	}
	startOffset := len(body) - r.Len()

	if _, err := readU32(); err != nil { // skip flags, ignored
		return nil, err
	}
	if _, err := readU32(); err != nil { // size extra, ignored
		return nil, err
	}

	algID, err := readU32()
	if err != nil {
		return nil, err
	}
	switch algID {
	case 0, 0x660E, 0x660F, 0x6610:
	default:
		return nil, ooxmlerrors.ErrInvalidCipher
	}

	algIDHash, err := readU32()
	if err != nil {
		return nil, err
	}
	if algIDHash != 0 && algIDHash != 0x8004 {
		return nil, ooxmlerrors.ErrInvalidHash
	}

	keyBits, err := readU32()
	if err != nil {
		return nil, err
	}

	providerType, err := readU32()
	if err != nil {
		return nil, err
	}
	if providerType != 0 && providerType != 0x18 {
		return nil, ooxmlerrors.ErrInvalidProviderType
	}

	if _, err := readU32(); err != nil { // reserved1, ignored
		return nil, err
	}
	reserved2, err := readU32()
	if err != nil {
		return nil, err
	}
	if reserved2 != 0 {
		return nil, fmt.Errorf("%w: reserved2 must be zero", ooxmlerrors.ErrBadHeader)
	}

	consumed := len(body) - r.Len()
	cspNameLen := int(headerLength) - (consumed - startOffset)
	if cspNameLen < 2 || consumed+cspNameLen > len(body) {
		return nil, fmt.Errorf("%w: invalid CSP name length", ooxmlerrors.ErrBadEncryptionInfo)
	}
	cspBytes := body[consumed : consumed+cspNameLen]
	units := make([]uint16, len(cspBytes)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(cspBytes[i*2 : i*2+2])
	}
	if len(units) > 0 {
		units = units[:len(units)-1] // drop the trailing NUL code unit
	}
	cspName := string(utf16.Decode(units))
	if !standardCSPNames[cspName] {
		return nil, ooxmlerrors.ErrInvalidCSP
	}

	if _, err := r.Seek(int64(cspNameLen), 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ooxmlerrors.ErrBadEncryptionInfo, err)
	}

	saltSize, err := readU32()
	if err != nil {
		return nil, err
	}
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, fmt.Errorf("%w: truncated salt", ooxmlerrors.ErrBadEncryptionInfo)
	}

	verifierHashInput := make([]byte, 16)
	if _, err := io.ReadFull(r, verifierHashInput); err != nil {
		return nil, fmt.Errorf("%w: truncated verifier hash input", ooxmlerrors.ErrBadEncryptionInfo)
	}

	verifierHashSize, err := readU32()
	if err != nil {
		return nil, err
	}
	verifierHashValue := make([]byte, verifierHashSize)
	if _, err := io.ReadFull(r, verifierHashValue); err != nil {
		return nil, fmt.Errorf("%w: truncated verifier hash value", ooxmlerrors.ErrBadEncryptionInfo)
	}

	return &standardDescriptor{
		AlgID:           algID,
		AlgIDHash:       algIDHash,
		KeyBits:         keyBits,
		ProviderType:    providerType,
		CSPName:         cspName,
		Salt:            salt,
		VerifierHashIn:  verifierHashInput,
		VerifierHashVal: verifierHashValue,
	}, nil
}

// deriveStandardKey runs the Standard scheme's fixed SHA-1/spin-50000 key
// derivation loop and returns the first keyBytes() bytes of (X1‖X2).
func deriveStandardKey(d *standardDescriptor, passwordUTF16LE []byte) []byte {
	saltPlusPassword := append(append([]byte{}, d.Salt...), passwordUTF16LE...)
	h := sha1Sum(saltPlusPassword)

	for i := uint32(0); i < standardSpinCount; i++ {
		buf := make([]byte, 4+len(h))
		binary.LittleEndian.PutUint32(buf[:4], i)
		copy(buf[4:], h)
		h = sha1Sum(buf)
	}

	hFinal := sha1Sum(append(append([]byte{}, h...), 0, 0, 0, 0))

	buf1 := bytes.Repeat([]byte{0x36}, 64)
	buf2 := bytes.Repeat([]byte{0x5C}, 64)
	for i := 0; i < len(hFinal); i++ {
		buf1[i] ^= hFinal[i]
		buf2[i] ^= hFinal[i]
	}

	x1 := sha1Sum(buf1)
	x2 := sha1Sum(buf2)
	combined := append(x1, x2...)

	keyBytes := d.keyBytes()
	if keyBytes > len(combined) {
		keyBytes = len(combined)
	}
	return combined[:keyBytes]
}

// verifyStandardPassword checks the encryptedVerifier/encryptedVerifierHash
// pair that the original implementation parses but never verifies.
func verifyStandardPassword(d *standardDescriptor, key []byte) error {
	decryptedInput, err := aesECBDecrypt(d.VerifierHashIn, key)
	if err != nil {
		return err
	}

	decryptedHash, err := aesECBDecrypt(d.VerifierHashVal, key)
	if err != nil {
		return err
	}

	calculated := sha1Sum(decryptedInput)
	if len(decryptedHash) < len(calculated) {
		return ooxmlerrors.ErrBadPassword
	}
	if !bytes.Equal(calculated, decryptedHash[:len(calculated)]) {
		return ooxmlerrors.ErrBadPassword
	}
	return nil
}

// decryptStandard AES-ECB-decrypts the bulk ciphertext and truncates to the
// plaintext size declared at the front of EncryptedPackage.
func decryptStandard(d *standardDescriptor, key, encryptedPackage []byte) ([]byte, error) {
	if len(encryptedPackage) < 8 {
		return nil, ooxmlerrors.ErrTruncatedCiphertext
	}
	plaintextSize := binary.LittleEndian.Uint64(encryptedPackage[:8])

	plaintext, err := aesECBDecrypt(encryptedPackage[8:], key)
	if err != nil {
		return nil, err
	}
	if uint64(len(plaintext)) < plaintextSize {
		return nil, ooxmlerrors.ErrTruncatedCiphertext
	}
	return plaintext[:plaintextSize], nil
}
