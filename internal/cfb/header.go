// Package cfb reads the OLE2 Compound File Binary container that wraps an
// encrypted OOXML package, exposing just enough to pull a named root-level
// stream out of it by byte content.
package cfb

import (
	"bytes"
	"encoding/binary"
	"fmt"

	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

const (
	headerSize        = 512
	dirEntrySize      = 128
	numHeaderDIFAT     = 109
	miniStreamCutoff  = 0x1000
	miniSectorShiftOK = 6 // 64-byte mini sectors, the only value this format uses
)

var magic = [8]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// Sector ID sentinels (ECMA-AAF / [MS-CFB] 2.1).
const (
	sectorMaxRegular uint32 = 0xFFFFFFFA
	sectorDIFAT      uint32 = 0xFFFFFFFC
	sectorFAT        uint32 = 0xFFFFFFFD
	sectorEndOfChain uint32 = 0xFFFFFFFE
	sectorFree       uint32 = 0xFFFFFFFF
)

const sidNone uint32 = 0xFFFFFFFF

type header struct {
	MinorVersion          uint16
	MajorVersion          uint16
	ByteOrder             uint16
	SectorShift           uint16
	MiniSectorShift       uint16
	Reserved              [6]byte
	NumDirSectors         uint32
	NumFATSectors         uint32
	FirstDirSector        uint32
	TransactionSignature  uint32
	MiniStreamCutoffSize  uint32
	FirstMiniFATSector    uint32
	NumMiniFATSectors     uint32
	FirstDIFATSector      uint32
	NumDIFATSectors       uint32
	DIFAT                 [numHeaderDIFAT]uint32
}

// parseHeader validates the fixed 512-byte CFB header and returns it along
// with the derived sector size.
func parseHeader(data []byte) (*header, uint32, error) {
	if len(data) == 0 {
		return nil, 0, ooxmlerrors.ErrEmptyInput
	}
	if len(data) < headerSize {
		return nil, 0, fmt.Errorf("%w: file shorter than CFB header", ooxmlerrors.ErrNotCompoundFile)
	}
	if !bytes.Equal(data[:8], magic[:]) {
		return nil, 0, fmt.Errorf("%w: bad magic", ooxmlerrors.ErrNotCompoundFile)
	}

	var h header
	if err := binary.Read(bytes.NewReader(data[24:headerSize]), binary.LittleEndian, &h); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ooxmlerrors.ErrNotCompoundFile, err)
	}

	if h.MajorVersion != 3 && h.MajorVersion != 4 {
		return nil, 0, fmt.Errorf("%w: unsupported major version %d", ooxmlerrors.ErrNotCompoundFile, h.MajorVersion)
	}

	sectorSize := uint32(1) << h.SectorShift
	if (h.MajorVersion == 3 && sectorSize != 512) || (h.MajorVersion == 4 && sectorSize != 4096) {
		return nil, 0, fmt.Errorf("%w: sector size %d does not match major version %d", ooxmlerrors.ErrNotCompoundFile, sectorSize, h.MajorVersion)
	}

	if h.MiniSectorShift != miniSectorShiftOK {
		return nil, 0, fmt.Errorf("%w: unsupported mini sector shift %d", ooxmlerrors.ErrNotCompoundFile, h.MiniSectorShift)
	}

	if h.MiniStreamCutoffSize != miniStreamCutoff {
		return nil, 0, fmt.Errorf("%w: unexpected mini stream cutoff %d", ooxmlerrors.ErrNotCompoundFile, h.MiniStreamCutoffSize)
	}

	if h.MajorVersion == 3 && h.NumDirSectors != 0 {
		return nil, 0, fmt.Errorf("%w: version 3 file declares directory sectors", ooxmlerrors.ErrNotCompoundFile)
	}

	return &h, sectorSize, nil
}
