package cfb

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"

	ooxmlerrors "github.com/deploymenttheory/go-ooxmlcrypt/internal/utils/errors"
)

// Directory entry object types ([MS-CFB] 2.6.1).
const (
	entryEmpty   byte = 0
	entryStorage byte = 1
	entryStream  byte = 2
	entryRoot    byte = 5
)

type dirEntry struct {
	Name        string
	Type        byte
	SidLeft     uint32
	SidRight    uint32
	SidChild    uint32
	StartSector uint32
	Size        uint64
}

// parseDirectory reads the directory stream (rooted at FirstDirSector) and
// decodes it into fixed 128-byte entries.
func parseDirectory(data []byte, fat []uint32, h *header, sectorSize uint32) ([]dirEntry, error) {
	raw, err := readChain(data, fat, sectorSize, h.FirstDirSector, 0, false)
	if err != nil {
		return nil, err
	}

	count := len(raw) / dirEntrySize
	entries := make([]dirEntry, count)

	for i := 0; i < count; i++ {
		rec := raw[i*dirEntrySize : (i+1)*dirEntrySize]
		e, err := parseDirEntry(rec, i)
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}

	if count == 0 || entries[0].Type != entryRoot {
		return nil, fmt.Errorf("%w: missing root directory entry", ooxmlerrors.ErrNotCompoundFile)
	}

	return entries, nil
}

func parseDirEntry(rec []byte, sid int) (dirEntry, error) {
	nameLen := binary.LittleEndian.Uint16(rec[64:66])
	if nameLen > 64 {
		return dirEntry{}, fmt.Errorf("%w: directory entry name too long", ooxmlerrors.ErrNotCompoundFile)
	}

	entryType := rec[66]
	if sid == 0 && entryType != entryRoot {
		return dirEntry{}, fmt.Errorf("%w: first directory entry is not root", ooxmlerrors.ErrNotCompoundFile)
	}

	var name string
	if nameLen >= 2 {
		units := make([]uint16, nameLen/2-1)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(rec[i*2 : i*2+2])
		}
		name = string(utf16.Decode(units))
	}

	sidLeft := binary.LittleEndian.Uint32(rec[68:72])
	sidRight := binary.LittleEndian.Uint32(rec[72:76])
	sidChild := binary.LittleEndian.Uint32(rec[76:80])
	startSector := binary.LittleEndian.Uint32(rec[116:120])
	size := binary.LittleEndian.Uint64(rec[120:128])

	return dirEntry{
		Name:        name,
		Type:        entryType,
		SidLeft:     sidLeft,
		SidRight:    sidRight,
		SidChild:    sidChild,
		StartSector: startSector,
		Size:        size,
	}, nil
}

// rootChildren walks the red-black tree rooted at the root entry's SidChild,
// returning its immediate children keyed by lower-cased name. Nested
// storages are not descended into; only the names directly under root are
// needed to find EncryptionInfo/EncryptedPackage.
func rootChildren(entries []dirEntry) (map[string]*dirEntry, error) {
	out := make(map[string]*dirEntry)
	var walk func(sid uint32) error
	walk = func(sid uint32) error {
		if sid == sidNone {
			return nil
		}
		if int(sid) >= len(entries) {
			return fmt.Errorf("%w: directory SID out of range", ooxmlerrors.ErrNotCompoundFile)
		}
		e := &entries[sid]
		if err := walk(e.SidLeft); err != nil {
			return err
		}
		key := strings.ToLower(e.Name)
		if _, exists := out[key]; exists {
			return fmt.Errorf("%w: duplicate root entry name", ooxmlerrors.ErrNotCompoundFile)
		}
		out[key] = e
		if err := walk(e.SidRight); err != nil {
			return err
		}
		return nil
	}

	if err := walk(entries[0].SidChild); err != nil {
		return nil, err
	}
	return out, nil
}
