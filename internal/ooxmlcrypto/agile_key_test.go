package ooxmlcrypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"testing"
)

func aesCBCEncryptForTest(t *testing.T, plaintext, key, iv []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out
}

func TestDeriveAgileHnDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x10}, 16)
	pw := utf8ToUTF16LE("passw0rd")

	h1 := deriveAgileHn(salt, pw, 1000, hashSHA1)
	h2 := deriveAgileHn(salt, pw, 1000, hashSHA1)
	if !bytes.Equal(h1, h2) {
		t.Error("deriveAgileHn is not deterministic")
	}
	if len(h1) != 20 {
		t.Errorf("SHA1 H_n length = %d, want 20", len(h1))
	}

	h512 := deriveAgileHn(salt, pw, 1000, hashSHA512)
	if len(h512) != 64 {
		t.Errorf("SHA512 H_n length = %d, want 64", len(h512))
	}
}

func TestVerifyAgilePasswordRoundTrip(t *testing.T) {
	salt := bytes.Repeat([]byte{0x20}, 16)
	desc := &agileDescriptor{
		KeyEncryptorSalt: salt,
		KeyEncryptorHash: hashSHA1,
		KeyBits:          128,
	}

	hN := deriveAgileHn(salt, utf8ToUTF16LE("correct"), 50, hashSHA1)

	inputKey := deriveAgileBlockKey(hN, blockKeyVerifierInput, desc.KeyBits, desc.KeyEncryptorHash)
	verifierInput := bytes.Repeat([]byte{0x30}, 16)
	desc.VerifierHashIn = aesCBCEncryptForTest(t, verifierInput, inputKey, salt)

	hashInput := sha1Sum(verifierInput)
	padded := make([]byte, 32) // SHA1 hash is 20 bytes, padded to a 16-byte block multiple
	copy(padded, hashInput)
	valueKey := deriveAgileBlockKey(hN, blockKeyVerifierHash, desc.KeyBits, desc.KeyEncryptorHash)
	desc.VerifierHashVal = aesCBCEncryptForTest(t, padded, valueKey, salt)

	if err := verifyAgilePassword(desc, hN); err != nil {
		t.Errorf("verifyAgilePassword failed for matching H_n: %v", err)
	}

	wrongHn := deriveAgileHn(salt, utf8ToUTF16LE("wrong"), 50, hashSHA1)
	if err := verifyAgilePassword(desc, wrongHn); err == nil {
		t.Error("expected verifyAgilePassword to fail for wrong H_n")
	}
}

func TestUnwrapAgileKeyRoundTrip(t *testing.T) {
	salt := bytes.Repeat([]byte{0x40}, 16)
	desc := &agileDescriptor{
		KeyEncryptorSalt: salt,
		KeyEncryptorHash: hashSHA1,
		KeyBits:          128,
	}
	hN := deriveAgileHn(salt, utf8ToUTF16LE("pw"), 10, hashSHA1)

	wantKey := bytes.Repeat([]byte{0x55}, 16)
	keyValueKey := deriveAgileBlockKey(hN, blockKeyKeyValue, desc.KeyBits, desc.KeyEncryptorHash)
	desc.EncryptedKeyValue = aesCBCEncryptForTest(t, wantKey, keyValueKey, salt)

	got, err := unwrapAgileKey(desc, hN)
	if err != nil {
		t.Fatalf("unwrapAgileKey failed: %v", err)
	}
	if !bytes.Equal(got, wantKey) {
		t.Errorf("unwrapAgileKey = %x, want %x", got, wantKey)
	}
}

func TestVerifyAgileIntegritySkippedWhenAbsent(t *testing.T) {
	desc := &agileDescriptor{}
	if err := verifyAgileIntegrity(desc, nil, []byte("plaintext")); err != nil {
		t.Errorf("expected no error when dataIntegrity is absent, got %v", err)
	}
}

func TestVerifyAgileIntegrityRoundTrip(t *testing.T) {
	salt := bytes.Repeat([]byte{0x60}, 16)
	key := bytes.Repeat([]byte{0x61}, 16)
	desc := &agileDescriptor{
		SaltValue:     salt,
		HashAlgorithm: hashSHA1,
		KeyBits:       128,
	}

	plaintext := []byte("the decrypted package bytes")
	hmacKey := bytes.Repeat([]byte{0x62}, 20)
	hmacKeyPadded := make([]byte, 32) // the encrypted block is padded; the
	copy(hmacKeyPadded, hmacKey)      // decrypted key is used unstripped as the HMAC key

	mac := newHMAC(hashSHA1, hmacKeyPadded)
	mac.Write(plaintext)
	expected := mac.Sum(nil)
	expectedPadded := make([]byte, 32)
	copy(expectedPadded, expected)

	hmacKeyEncKey := deriveAgileBlockKey(key, blockKeyHmacKey, desc.KeyBits, desc.HashAlgorithm)
	desc.HmacKeyEncrypted = aesCBCEncryptForTest(t, hmacKeyPadded, hmacKeyEncKey, salt)

	hmacValEncKey := deriveAgileBlockKey(key, blockKeyHmacValue, desc.KeyBits, desc.HashAlgorithm)
	desc.HmacValueEncrypted = aesCBCEncryptForTest(t, expectedPadded, hmacValEncKey, salt)

	if err := verifyAgileIntegrity(desc, key, plaintext); err != nil {
		t.Errorf("verifyAgileIntegrity failed for matching HMAC: %v", err)
	}

	if err := verifyAgileIntegrity(desc, key, []byte("different plaintext")); err == nil {
		t.Error("expected verifyAgileIntegrity to fail for mismatched plaintext")
	}
}
