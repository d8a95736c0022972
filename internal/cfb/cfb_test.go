package cfb

import (
	"encoding/binary"
	"strings"
	"testing"
)

const testSectorSize = 512

// buildMinimalCFB assembles a minimal, valid v3 Compound File with a root
// storage and the given named streams, each stored as plain FAT sectors
// (no MiniFAT involved) so the fixture stays easy to reason about by hand.
func buildMinimalCFB(t *testing.T, streams map[string][]byte) []byte {
	t.Helper()

	names := make([]string, 0, len(streams))
	for name := range streams {
		names = append(names, name)
	}

	// Pad every stream up to the mini-stream cutoff so this fixture never
	// needs a MiniFAT chain; ReadStream routes purely on declared size.
	for _, name := range names {
		if data := streams[name]; len(data) < miniStreamCutoff {
			padded := make([]byte, miniStreamCutoff)
			copy(padded, data)
			streams[name] = padded
		}
	}

	// Sector layout: 0 = directory, 1 = FAT, then data sectors per stream.
	var dataSectors [][]byte
	streamStart := make(map[string]uint32)

	for _, name := range names {
		data := streams[name]
		start := uint32(2 + len(dataSectors))
		streamStart[name] = start

		for off := 0; off < len(data); off += testSectorSize {
			end := off + testSectorSize
			sec := make([]byte, testSectorSize)
			if end > len(data) {
				end = len(data)
			}
			copy(sec, data[off:end])
			dataSectors = append(dataSectors, sec)
		}
		if len(data) == 0 {
			sec := make([]byte, testSectorSize)
			dataSectors = append(dataSectors, sec)
		}
	}

	totalSectors := 2 + len(dataSectors)

	fat := make([]uint32, testSectorSize/4)
	for i := range fat {
		fat[i] = sectorFree
	}
	fat[0] = sectorEndOfChain // directory: single sector
	fat[1] = sectorFAT        // FAT sector marks itself

	secIdx := 2
	for _, name := range names {
		data := streams[name]
		n := (len(data) + testSectorSize - 1) / testSectorSize
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			if i == n-1 {
				fat[secIdx] = sectorEndOfChain
			} else {
				fat[secIdx] = uint32(secIdx + 1)
			}
			secIdx++
		}
	}

	// Directory sector: entry 0 = root, entries 1..N = streams as root children.
	dir := make([]byte, testSectorSize)
	writeDirEntry(dir, 0, "Root Entry", entryRoot, sidNone, sidNone, boolToSid(len(names) > 0, 1), 0, 0)

	// Chain the stream entries as a right-only list so rootChildren's
	// in-order BST walk (left, self, right) visits every entry.
	for i, name := range names {
		sid := uint32(i + 1)
		right := sidNone
		if i+1 < len(names) {
			right = uint32(i + 2)
		}
		writeDirEntry(dir, int(sid), name, entryStream, sidNone, right, sidNone, streamStart[name], uint64(len(streams[name])))
	}

	header := make([]byte, headerSize)
	copy(header[0:8], magic[:])
	binary.LittleEndian.PutUint16(header[24:26], 3)      // minor
	binary.LittleEndian.PutUint16(header[26:28], 3)      // major
	binary.LittleEndian.PutUint16(header[28:30], 0xFFFE) // byte order
	binary.LittleEndian.PutUint16(header[30:32], 9)      // sector shift (512)
	binary.LittleEndian.PutUint16(header[32:34], 6)      // mini sector shift
	binary.LittleEndian.PutUint32(header[40:44], 0)      // num dir sectors (v3: 0)
	binary.LittleEndian.PutUint32(header[44:48], 1)      // num FAT sectors
	binary.LittleEndian.PutUint32(header[48:52], 0)      // first dir sector
	binary.LittleEndian.PutUint32(header[56:60], 0x1000) // mini stream cutoff
	binary.LittleEndian.PutUint32(header[60:64], sectorEndOfChain) // first minifat sector
	binary.LittleEndian.PutUint32(header[64:68], 0)                // num minifat sectors
	binary.LittleEndian.PutUint32(header[68:72], sectorEndOfChain) // first difat sector
	binary.LittleEndian.PutUint32(header[72:76], 0)                // num difat sectors
	binary.LittleEndian.PutUint32(header[76:80], 1)                // DIFAT[0] = FAT sector index

	for i := 1; i < numHeaderDIFAT; i++ {
		binary.LittleEndian.PutUint32(header[76+i*4:80+i*4], sectorFree)
	}

	out := make([]byte, 0, headerSize+totalSectors*testSectorSize)
	out = append(out, header...)
	out = append(out, dir...)

	fatSector := make([]byte, testSectorSize)
	for i, v := range fat {
		binary.LittleEndian.PutUint32(fatSector[i*4:i*4+4], v)
	}
	out = append(out, fatSector...)

	for _, sec := range dataSectors {
		out = append(out, sec...)
	}

	return out
}

func boolToSid(has bool, v uint32) uint32 {
	if has {
		return v
	}
	return sidNone
}

func writeDirEntry(dir []byte, idx int, name string, typ byte, left, right, child, startSector uint32, size uint64) {
	rec := dir[idx*dirEntrySize : (idx+1)*dirEntrySize]
	units := []uint16{}
	for _, r := range name {
		units = append(units, uint16(r))
	}
	for i, u := range units {
		binary.LittleEndian.PutUint16(rec[i*2:i*2+2], u)
	}
	binary.LittleEndian.PutUint16(rec[64:66], uint16((len(units)+1)*2))
	rec[66] = typ
	rec[67] = 1 // color, irrelevant to the reader
	binary.LittleEndian.PutUint32(rec[68:72], left)
	binary.LittleEndian.PutUint32(rec[72:76], right)
	binary.LittleEndian.PutUint32(rec[76:80], child)
	binary.LittleEndian.PutUint32(rec[116:120], startSector)
	binary.LittleEndian.PutUint64(rec[120:128], size)
}

func TestOpenAndReadStream(t *testing.T) {
	streams := map[string][]byte{
		"EncryptionInfo":   []byte("header-bytes-for-encryption-info"),
		"EncryptedPackage": append([]byte{0xAA, 0xBB}, make([]byte, 600)...),
	}

	data := buildMinimalCFB(t, streams)

	storage, err := Open(data)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for name, want := range streams {
		got, err := storage.ReadStream(name)
		if err != nil {
			t.Fatalf("ReadStream(%q) failed: %v", name, err)
		}
		if string(got) != string(want) {
			t.Errorf("ReadStream(%q) = %x, want %x", name, got, want)
		}
	}

	// case-insensitive lookup
	if _, err := storage.ReadStream("encryptioninfo"); err != nil {
		t.Errorf("expected case-insensitive lookup to succeed, got %v", err)
	}

	if _, err := storage.ReadStream("NoSuchStream"); err == nil {
		t.Error("expected missing stream to error")
	}
}

func TestOpenRejectsBadMagic(t *testing.T) {
	data := buildMinimalCFB(t, map[string][]byte{"x": []byte("y")})
	data[0] = 0x00

	if _, err := Open(data); err == nil {
		t.Error("expected bad magic to be rejected")
	}
}

func TestOpenRejectsEmptyInput(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("expected empty input to error")
	}
}

func TestOpenRejectsTruncatedHeader(t *testing.T) {
	data := buildMinimalCFB(t, map[string][]byte{"x": []byte("y")})
	if _, err := Open(data[:100]); err == nil {
		t.Error("expected truncated header to error")
	}
}

func TestRootChildrenNameLookupIsCaseInsensitive(t *testing.T) {
	streams := map[string][]byte{
		"Alpha": []byte("a"),
		"Beta":  []byte("b"),
		"Gamma": []byte("c"),
	}
	data := buildMinimalCFB(t, streams)

	storage, err := Open(data)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for name := range streams {
		if _, err := storage.ReadStream(strings.ToUpper(name)); err != nil {
			t.Errorf("expected %s to be found case-insensitively: %v", name, err)
		}
	}
}
