package ooxmlcrypto

import (
	"context"
	"encoding/binary"

	"golang.org/x/sync/errgroup"

	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

const agileSegmentLength = 4096

// segmentIV derives the IV for OLE segment index i: H(salt || LE32(i)),
// truncated to the AES block size.
func segmentIV(salt []byte, index uint32, hash hashAlgorithm) []byte {
	buf := make([]byte, len(salt)+4)
	copy(buf, salt)
	binary.LittleEndian.PutUint32(buf[len(salt):], index)
	iv := hash.sum(buf)
	if len(iv) > 16 {
		iv = iv[:16]
	}
	return iv
}

// decryptSegmentsSequential decrypts an Agile EncryptedPackage stream one
// 4096-byte OLE segment at a time, in order.
func decryptSegmentsSequential(d *agileDescriptor, key, encryptedPackage []byte) ([]byte, error) {
	if len(encryptedPackage) < 8 {
		return nil, ooxmlerrors.ErrTruncatedCiphertext
	}
	plaintextSize := binary.LittleEndian.Uint64(encryptedPackage[:8])
	ciphertext := encryptedPackage[8:]

	numSegments := (len(ciphertext) + agileSegmentLength - 1) / agileSegmentLength
	out := make([]byte, 0, len(ciphertext))

	for i := 0; i < numSegments; i++ {
		start := i * agileSegmentLength
		end := start + agileSegmentLength
		if end > len(ciphertext) {
			end = len(ciphertext)
		}

		iv := segmentIV(d.SaltValue, uint32(i), d.HashAlgorithm)
		plain, err := aesCBCDecrypt(ciphertext[start:end], key, iv)
		if err != nil {
			return nil, err
		}
		out = append(out, plain...)
	}

	if uint64(len(out)) < plaintextSize {
		return nil, ooxmlerrors.ErrTruncatedCiphertext
	}
	return out[:plaintextSize], nil
}

// decryptSegmentsConcurrent decrypts segments across a bounded pool of
// workers, writing each decrypted segment into its own slot of a
// preallocated output slice so assembly stays positional regardless of
// completion order.
func decryptSegmentsConcurrent(ctx context.Context, d *agileDescriptor, key, encryptedPackage []byte, workers int) ([]byte, error) {
	if len(encryptedPackage) < 8 {
		return nil, ooxmlerrors.ErrTruncatedCiphertext
	}
	plaintextSize := binary.LittleEndian.Uint64(encryptedPackage[:8])
	ciphertext := encryptedPackage[8:]

	numSegments := (len(ciphertext) + agileSegmentLength - 1) / agileSegmentLength
	if numSegments == 0 {
		return nil, nil
	}

	segments := make([][]byte, numSegments)

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i := 0; i < numSegments; i++ {
		i := i
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			start := i * agileSegmentLength
			end := start + agileSegmentLength
			if end > len(ciphertext) {
				end = len(ciphertext)
			}

			iv := segmentIV(d.SaltValue, uint32(i), d.HashAlgorithm)
			plain, err := aesCBCDecrypt(ciphertext[start:end], key, iv)
			if err != nil {
				return err
			}
			segments[i] = plain
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(ciphertext))
	for _, seg := range segments {
		out = append(out, seg...)
	}

	if uint64(len(out)) < plaintextSize {
		return nil, ooxmlerrors.ErrTruncatedCiphertext
	}
	return out[:plaintextSize], nil
}
