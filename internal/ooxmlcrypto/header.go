package ooxmlcrypto

import (
	"encoding/binary"
	"fmt"

	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

// Scheme identifies which MS-OFFCRYPTO descriptor format follows the
// 8-byte EncryptionInfo prefix.
type Scheme int

const (
	SchemeStandard Scheme = iota
	SchemeAgile
)

const (
	standardFlagReservedMask    = 0b00000011
	standardFlagCryptoAPI       = 0b00000100
	standardFlagExternal        = 0b00010000
	standardFlagAES             = 0b00100000
	agileExpectedFlags   uint32 = 0x40
)

// parseHeader reads the 8-byte version+flags prefix of the EncryptionInfo
// stream and returns which scheme it selects along with the remaining body.
func parseHeader(encryptionInfo []byte) (Scheme, []byte, error) {
	if len(encryptionInfo) < 8 {
		return 0, nil, fmt.Errorf("%w: EncryptionInfo shorter than its header", ooxmlerrors.ErrBadHeader)
	}

	versionMajor := binary.LittleEndian.Uint16(encryptionInfo[0:2])
	versionMinor := binary.LittleEndian.Uint16(encryptionInfo[2:4])
	flags := binary.LittleEndian.Uint32(encryptionInfo[4:8])
	body := encryptionInfo[8:]

	if versionMajor == 4 && versionMinor == 4 {
		if flags != agileExpectedFlags {
			return 0, nil, fmt.Errorf("%w: agile header flags 0x%x", ooxmlerrors.ErrBadHeader, flags)
		}
		return SchemeAgile, body, nil
	}

	if versionMinor != 2 || (versionMajor != 2 && versionMajor != 3 && versionMajor != 4) {
		return 0, nil, fmt.Errorf("%w: version %d.%d", ooxmlerrors.ErrUnsupportedVersion, versionMajor, versionMinor)
	}

	if flags&standardFlagReservedMask != 0 {
		return 0, nil, fmt.Errorf("%w: reserved flag bits set", ooxmlerrors.ErrBadHeader)
	}
	if flags&standardFlagCryptoAPI == 0 || flags&standardFlagExternal != 0 {
		return 0, nil, ooxmlerrors.ErrUnsupportedExtensibleEncryption
	}
	if flags&standardFlagAES == 0 {
		return 0, nil, ooxmlerrors.ErrNotOOXML
	}

	return SchemeStandard, body, nil
}
