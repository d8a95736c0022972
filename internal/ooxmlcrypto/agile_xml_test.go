package ooxmlcrypto

import (
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

func buildAgileXML(hashAlg string, extraKeyEncryptor string) []byte {
	b64 := base64.StdEncoding.EncodeToString
	saltValue := b64([]byte("0123456789ABCDEF"))

	doc := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<encryption xmlns="%s" xmlns:p="%s">
  <keyData saltSize="16" blockSize="16" keyBits="128" hashSize="20"
           cipherAlgorithm="AES" cipherChaining="ChainingModeCBC"
           hashAlgorithm="SHA1" saltValue="%s"/>
  <dataIntegrity encryptedHmacKey="%s" encryptedHmacValue="%s"/>
  <keyEncryptors>
    <keyEncryptor uri="%s">
      %s
      <p:encryptedKey spinCount="100000" saltSize="16" blockSize="16"
                      keyBits="128" hashSize="20" cipherAlgorithm="AES"
                      cipherChaining="ChainingModeCBC" hashAlgorithm="%s"
                      saltValue="%s" encryptedVerifierHashInput="%s"
                      encryptedVerifierHashValue="%s" encryptedKeyValue="%s"/>
    </keyEncryptor>
  </keyEncryptors>
</encryption>`,
		xmlnsEncryption, xmlnsEncryptionPassword,
		saltValue,
		b64([]byte("hmackeybytes1234")), b64([]byte("hmacvalbytes5678")),
		xmlnsEncryptionPassword,
		extraKeyEncryptor,
		hashAlg,
		saltValue,
		b64([]byte("verifierinput123")),
		b64([]byte("verifierhashvalue1234567890abcd")),
		b64([]byte("encryptedkeyvalue1234567890abcd")),
	)
	return []byte(doc)
}

func TestParseAgileDescriptorValid(t *testing.T) {
	body := buildAgileXML("SHA1", "")

	desc, err := parseAgileDescriptor(body)
	if err != nil {
		t.Fatalf("parseAgileDescriptor failed: %v", err)
	}
	if desc.HashAlgorithm != hashSHA1 {
		t.Errorf("HashAlgorithm = %v, want hashSHA1", desc.HashAlgorithm)
	}
	if desc.SpinCount != 100000 {
		t.Errorf("SpinCount = %d, want 100000", desc.SpinCount)
	}
	if desc.KeyBits != 128 {
		t.Errorf("KeyBits = %d, want 128", desc.KeyBits)
	}
	if len(desc.SaltValue) != 16 {
		t.Errorf("SaltValue length = %d, want 16", len(desc.SaltValue))
	}
}

func TestParseAgileDescriptorSHA512(t *testing.T) {
	body := buildAgileXML("SHA512", "")
	desc, err := parseAgileDescriptor(body)
	if err != nil {
		t.Fatalf("parseAgileDescriptor failed: %v", err)
	}
	if desc.HashAlgorithm != hashSHA512 {
		t.Errorf("HashAlgorithm = %v, want hashSHA512", desc.HashAlgorithm)
	}
}

func TestParseAgileDescriptorRejectsUnsupportedHash(t *testing.T) {
	body := buildAgileXML("MD5", "")
	if _, err := parseAgileDescriptor(body); !errors.Is(err, ooxmlerrors.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestParseAgileDescriptorRejectsCertificateKeyEncryptor(t *testing.T) {
	const xmlnsEncryptionCertificate = "http://schemas.microsoft.com/office/2006/keyEncryptor/certificate"
	extra := fmt.Sprintf(`<c:encryptedKey xmlns:c="%s" certVerifier="AAAA"/>`, xmlnsEncryptionCertificate)

	body := buildAgileXML("SHA1", extra)

	if _, err := parseAgileDescriptor(body); !errors.Is(err, ooxmlerrors.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for a certificate keyEncryptor child, got %v", err)
	}
}

func TestParseAgileDescriptorRejectsNoPasswordKey(t *testing.T) {
	doc := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<encryption xmlns="%s">
  <keyData saltSize="16" blockSize="16" keyBits="128" hashSize="20"
           cipherAlgorithm="AES" cipherChaining="ChainingModeCBC"
           hashAlgorithm="SHA1" saltValue="AAAAAAAAAAAAAAAAAAAAAA=="/>
  <dataIntegrity encryptedHmacKey="" encryptedHmacValue=""/>
  <keyEncryptors>
    <keyEncryptor uri="%s"></keyEncryptor>
  </keyEncryptors>
</encryption>`, xmlnsEncryption, xmlnsEncryptionPassword)

	if _, err := parseAgileDescriptor([]byte(doc)); !errors.Is(err, ooxmlerrors.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for empty keyEncryptor, got %v", err)
	}
}

func TestParseHashAlgorithmTable(t *testing.T) {
	cases := []struct {
		in      string
		want    hashAlgorithm
		wantErr bool
	}{
		{"SHA1", hashSHA1, false},
		{"SHA512", hashSHA512, false},
		{"MD5", hashUnknown, true},
		{"", hashUnknown, true},
	}

	for _, c := range cases {
		got, err := parseHashAlgorithm(c.in)
		if c.wantErr && err == nil {
			t.Errorf("parseHashAlgorithm(%q): expected error", c.in)
		}
		if !c.wantErr && (err != nil || got != c.want) {
			t.Errorf("parseHashAlgorithm(%q) = %v, %v; want %v, nil", c.in, got, err, c.want)
		}
	}
}
