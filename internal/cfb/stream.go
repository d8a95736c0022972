package cfb

import (
	"fmt"

	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

const miniSectorSize = uint32(1) << miniSectorShiftOK

// readChain concatenates the sectors of a chain starting at startSector
// according to fat, stopping at ENDOFCHAIN, and truncates the result to
// size bytes (or returns everything read if size is unknown).
func readChain(data []byte, fat []uint32, sectorSize, startSector uint32, size uint64, sizeKnown bool) ([]byte, error) {
	var out []byte
	sect := startSector

	for sect != sectorEndOfChain {
		if sect == sectorFree || int(sect) >= len(fat) {
			return nil, fmt.Errorf("%w: broken sector chain", ooxmlerrors.ErrNotCompoundFile)
		}
		sec, err := getSector(data, sectorSize, sect)
		if err != nil {
			return nil, err
		}
		out = append(out, sec...)
		sect = fat[sect]
	}

	if sizeKnown {
		if uint64(len(out)) < size {
			return nil, fmt.Errorf("%w: stream shorter than declared size", ooxmlerrors.ErrNotCompoundFile)
		}
		out = out[:size]
	}

	return out, nil
}

// readMiniChain walks the mini-sector chain within the root entry's mini
// stream (which itself lives in the regular FAT).
func readMiniChain(ministream []byte, minifat []uint32, startSector uint32, size uint64) ([]byte, error) {
	var out []byte
	sect := startSector

	for sect != sectorEndOfChain {
		if int(sect) >= len(minifat) {
			return nil, fmt.Errorf("%w: broken mini sector chain", ooxmlerrors.ErrNotCompoundFile)
		}
		start := int(sect) * int(miniSectorSize)
		end := start + int(miniSectorSize)
		if end > len(ministream) {
			return nil, fmt.Errorf("%w: mini stream truncated", ooxmlerrors.ErrNotCompoundFile)
		}
		out = append(out, ministream[start:end]...)
		sect = minifat[sect]
	}

	if uint64(len(out)) < size {
		return nil, fmt.Errorf("%w: mini stream shorter than declared size", ooxmlerrors.ErrNotCompoundFile)
	}
	return out[:size], nil
}
