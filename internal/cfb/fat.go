package cfb

import (
	"encoding/binary"
	"fmt"

	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

// sectorToArray decodes a raw sector as an array of little-endian uint32
// sector IDs (used for FAT, MiniFAT, and DIFAT sectors alike).
func sectorToArray(sector []byte) []uint32 {
	out := make([]uint32, len(sector)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(sector[i*4 : i*4+4])
	}
	return out
}

// getSector returns the nth sector of the file, sector 0 being the first
// sector after the header sector (512 bytes in v3, 4096 bytes in v4).
func getSector(data []byte, sectorSize, n uint32) ([]byte, error) {
	start := int(sectorSize) + int(n)*int(sectorSize)
	end := start + int(sectorSize)
	if start < 0 || end > len(data) {
		return nil, fmt.Errorf("%w: sector %d out of range", ooxmlerrors.ErrNotCompoundFile, n)
	}
	return data[start:end], nil
}

// loadFAT builds the full FAT sector-ID array from the 109 header DIFAT
// entries, following any DIFAT extension chain for files with more than
// 109 FAT sectors.
func loadFAT(data []byte, h *header, sectorSize uint32) ([]uint32, error) {
	var fat []uint32

	appendSectors := func(sectIDs []uint32) error {
		for _, s := range sectIDs {
			if s == sectorEndOfChain || s == sectorFree {
				break
			}
			sec, err := getSector(data, sectorSize, s)
			if err != nil {
				return err
			}
			fat = append(fat, sectorToArray(sec)...)
		}
		return nil
	}

	if err := appendSectors(h.DIFAT[:]); err != nil {
		return nil, err
	}

	if h.NumDIFATSectors > 0 {
		difatEntriesPerSector := sectorSize/4 - 1
		next := h.FirstDIFATSector
		for i := uint32(0); i < h.NumDIFATSectors; i++ {
			sec, err := getSector(data, sectorSize, next)
			if err != nil {
				return nil, err
			}
			ids := sectorToArray(sec)
			if uint32(len(ids)) <= difatEntriesPerSector {
				return nil, fmt.Errorf("%w: truncated DIFAT sector", ooxmlerrors.ErrNotCompoundFile)
			}
			if err := appendSectors(ids[:difatEntriesPerSector]); err != nil {
				return nil, err
			}
			next = ids[difatEntriesPerSector]
		}
	}

	return fat, nil
}

// loadMiniFAT reads the MiniFAT sector-ID array via the regular FAT chain
// rooted at FirstMiniFATSector.
func loadMiniFAT(data []byte, h *header, fat []uint32, sectorSize uint32) ([]uint32, error) {
	if h.NumMiniFATSectors == 0 {
		return nil, nil
	}
	raw, err := readChain(data, fat, sectorSize, h.FirstMiniFATSector, uint64(h.NumMiniFATSectors)*uint64(sectorSize), true)
	if err != nil {
		return nil, err
	}
	return sectorToArray(raw), nil
}
