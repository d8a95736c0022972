package ooxmlcrypto

import (
	"encoding/xml"
	"fmt"

	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

// Public MS-OFFCRYPTO namespace URIs. original_source never carries the
// literal strings (its XML parser matches elements by namespace object
// identity), so these are the well-known constants from the published
// MS-OFFCRYPTO schema rather than anything lifted from the corpus.
const (
	xmlnsEncryption         = "http://schemas.microsoft.com/office/2006/encryption"
	xmlnsEncryptionPassword = "http://schemas.microsoft.com/office/2006/keyEncryptor/password"
)

type hashAlgorithm int

const (
	hashUnknown hashAlgorithm = iota
	hashSHA1
	hashSHA512
)

func (h hashAlgorithm) sum(b []byte) []byte {
	if h == hashSHA512 {
		return sha512Sum(b)
	}
	return sha1Sum(b)
}

type xmlKeyData struct {
	SaltSize        int    `xml:"saltSize,attr"`
	BlockSize       int    `xml:"blockSize,attr"`
	KeyBits         int    `xml:"keyBits,attr"`
	HashSize        int    `xml:"hashSize,attr"`
	CipherAlgorithm string `xml:"cipherAlgorithm,attr"`
	CipherChaining  string `xml:"cipherChaining,attr"`
	HashAlgorithm   string `xml:"hashAlgorithm,attr"`
	SaltValue       string `xml:"saltValue,attr"`
}

type xmlDataIntegrity struct {
	EncryptedHmacKey   string `xml:"encryptedHmacKey,attr"`
	EncryptedHmacValue string `xml:"encryptedHmacValue,attr"`
}

type xmlEncryptedKey struct {
	XMLName                   xml.Name `xml:"encryptedKey"`
	SpinCount                 int      `xml:"spinCount,attr"`
	SaltSize                  int      `xml:"saltSize,attr"`
	BlockSize                 int      `xml:"blockSize,attr"`
	KeyBits                   int      `xml:"keyBits,attr"`
	HashSize                  int      `xml:"hashSize,attr"`
	CipherAlgorithm           string   `xml:"cipherAlgorithm,attr"`
	CipherChaining            string   `xml:"cipherChaining,attr"`
	HashAlgorithm             string   `xml:"hashAlgorithm,attr"`
	SaltValue                 string   `xml:"saltValue,attr"`
	EncryptedVerifierHashIn   string   `xml:"encryptedVerifierHashInput,attr"`
	EncryptedVerifierHashVal  string   `xml:"encryptedVerifierHashValue,attr"`
	EncryptedKeyValue         string   `xml:"encryptedKeyValue,attr"`
}

type xmlKeyEncryptor struct {
	URI           string            `xml:"uri,attr"`
	EncryptedKey  []xmlEncryptedKey `xml:"encryptedKey"`
}

type xmlEncryption struct {
	XMLName        xml.Name          `xml:"encryption"`
	KeyData        xmlKeyData        `xml:"keyData"`
	DataIntegrity  xmlDataIntegrity   `xml:"dataIntegrity"`
	KeyEncryptors  []xmlKeyEncryptor  `xml:"keyEncryptors>keyEncryptor"`
}

// agileDescriptor holds the decoded form of an Agile EncryptionInfo body:
// the keyData block, dataIntegrity block, and the one password-based
// encryptedKey this package supports.
type agileDescriptor struct {
	SaltValue     []byte
	HashAlgorithm hashAlgorithm

	HmacKeyEncrypted   []byte
	HmacValueEncrypted []byte

	KeyEncryptorSalt  []byte
	KeyEncryptorHash  hashAlgorithm
	SpinCount         int
	KeyBits           int
	VerifierHashIn    []byte
	VerifierHashVal   []byte
	EncryptedKeyValue []byte
}

func parseHashAlgorithm(s string) (hashAlgorithm, error) {
	switch s {
	case "SHA512":
		return hashSHA512, nil
	case "SHA1":
		return hashSHA1, nil
	default:
		return hashUnknown, fmt.Errorf("%w: hash algorithm %q", ooxmlerrors.ErrUnsupported, s)
	}
}

// parseAgileDescriptor decodes the Agile EncryptionInfo XML body. Exactly
// one password-type encryptedKey must be present under keyEncryptors;
// certificate-based or other key-encryptor kinds are rejected.
func parseAgileDescriptor(body []byte) (*agileDescriptor, error) {
	var doc xmlEncryption
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ooxmlerrors.ErrBadEncryptionInfo, err)
	}

	saltValue, err := base64Decode(doc.KeyData.SaltValue)
	if err != nil {
		return nil, err
	}

	var encKey *xmlEncryptedKey
	for i := range doc.KeyEncryptors {
		ke := &doc.KeyEncryptors[i]
		if len(ke.EncryptedKey) == 0 {
			return nil, ooxmlerrors.ErrUnsupported
		}
		for j := range ke.EncryptedKey {
			child := &ke.EncryptedKey[j]
			// encoding/xml matches encryptedKey by local name only; the
			// certificate key-encryptor scheme names its child the same
			// way under a different namespace, so it must be rejected
			// explicitly rather than relying on missing attributes.
			if child.XMLName.Space != xmlnsEncryptionPassword {
				return nil, fmt.Errorf("%w: keyEncryptor child in namespace %q", ooxmlerrors.ErrUnsupported, child.XMLName.Space)
			}
			if encKey != nil {
				return nil, fmt.Errorf("%w: multiple encryptedKey entries", ooxmlerrors.ErrUnsupported)
			}
			encKey = child
		}
	}
	if encKey == nil {
		return nil, ooxmlerrors.ErrNoPasswordKey
	}

	keyHash, err := parseHashAlgorithm(encKey.HashAlgorithm)
	if err != nil {
		return nil, err
	}

	keSalt, err := base64Decode(encKey.SaltValue)
	if err != nil {
		return nil, err
	}
	verifierHashIn, err := base64Decode(encKey.EncryptedVerifierHashIn)
	if err != nil {
		return nil, err
	}
	verifierHashVal, err := base64Decode(encKey.EncryptedVerifierHashVal)
	if err != nil {
		return nil, err
	}
	encryptedKeyValue, err := base64Decode(encKey.EncryptedKeyValue)
	if err != nil {
		return nil, err
	}

	var hmacKey, hmacValue []byte
	if doc.DataIntegrity.EncryptedHmacKey != "" {
		hmacKey, err = base64Decode(doc.DataIntegrity.EncryptedHmacKey)
		if err != nil {
			return nil, err
		}
	}
	if doc.DataIntegrity.EncryptedHmacValue != "" {
		hmacValue, err = base64Decode(doc.DataIntegrity.EncryptedHmacValue)
		if err != nil {
			return nil, err
		}
	}

	return &agileDescriptor{
		SaltValue:          saltValue,
		HashAlgorithm:      keyHash,
		HmacKeyEncrypted:   hmacKey,
		HmacValueEncrypted: hmacValue,
		KeyEncryptorSalt:   keSalt,
		KeyEncryptorHash:   keyHash,
		SpinCount:          encKey.SpinCount,
		KeyBits:            encKey.KeyBits,
		VerifierHashIn:     verifierHashIn,
		VerifierHashVal:    verifierHashVal,
		EncryptedKeyValue:  encryptedKeyValue,
	}, nil
}
