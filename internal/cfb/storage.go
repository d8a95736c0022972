package cfb

import (
	"fmt"
	"strings"

	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

// Storage is an opened, in-memory view of an OLE2 Compound File. It
// supports looking up a named stream directly beneath the root storage;
// nested storages and write access are out of scope.
type Storage struct {
	data       []byte
	sectorSize uint32
	fat        []uint32
	minifat    []uint32
	children   map[string]*dirEntry
	root       *dirEntry
}

// Open parses the CFB header, FAT/MiniFAT, and directory tree out of an
// immutable byte buffer.
func Open(data []byte) (*Storage, error) {
	if len(data) == 0 {
		return nil, ooxmlerrors.ErrEmptyInput
	}

	h, sectorSize, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	fat, err := loadFAT(data, h, sectorSize)
	if err != nil {
		return nil, err
	}

	entries, err := parseDirectory(data, fat, h, sectorSize)
	if err != nil {
		return nil, err
	}

	minifat, err := loadMiniFAT(data, h, fat, sectorSize)
	if err != nil {
		return nil, err
	}

	children, err := rootChildren(entries)
	if err != nil {
		return nil, err
	}

	return &Storage{
		data:       data,
		sectorSize: sectorSize,
		fat:        fat,
		minifat:    minifat,
		children:   children,
		root:       &entries[0],
	}, nil
}

// ReadStream returns the full contents of a root-level stream, looked up
// case-insensitively. A missing stream is reported as ErrMissingStream.
func (s *Storage) ReadStream(name string) ([]byte, error) {
	e, ok := s.children[strings.ToLower(name)]
	if !ok || e.Type != entryStream {
		return nil, fmt.Errorf("%w: %s", ooxmlerrors.ErrMissingStream, name)
	}

	if e.Size < miniStreamCutoff {
		return s.readMiniStream(e)
	}
	return readChain(s.data, s.fat, s.sectorSize, e.StartSector, e.Size, true)
}

// readMiniStream reads a small stream out of the root entry's mini stream,
// which itself lives in the regular FAT.
func (s *Storage) readMiniStream(e *dirEntry) ([]byte, error) {
	if s.minifat == nil {
		return nil, fmt.Errorf("%w: mini stream referenced but no MiniFAT present", ooxmlerrors.ErrNotCompoundFile)
	}
	ministream, err := readChain(s.data, s.fat, s.sectorSize, s.root.StartSector, s.root.Size, true)
	if err != nil {
		return nil, err
	}
	return readMiniChain(ministream, s.minifat, e.StartSector, e.Size)
}
