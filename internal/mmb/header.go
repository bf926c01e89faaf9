// Package mmb decodes and encodes the binary proof format.
//
// A file starts with a fixed little-endian header followed by the sort
// table. The header points at the term table, the theorem table and the
// statement stream; every pointer is checked against the input length
// before it is followed.
package mmb

import (
	"encoding/binary"

	"mmbcheck/internal/kernel"
)

// Magic is the first four bytes of every file.
const Magic = "MM0B"

// Version is the only supported format version.
const Version = 1

// HeaderSize is the length of the fixed header; sort modifiers follow it.
const HeaderSize = 40

const (
	termEntrySize = 8
	thmEntrySize  = 8
)

// Header is the decoded fixed header.
type Header struct {
	Version  uint8
	NumSorts uint8
	NumTerms uint32
	NumThms  uint32
	PTerms   uint32
	PThms    uint32
	PProof   uint32
	PIndex   uint64 // name index; accepted and not interpreted
}

// File is a validated, not yet visited, input.
type File struct {
	Header
	Sorts []kernel.Sort

	data []byte
}

// Parse validates the header and sort table of data. The returned File
// borrows data until Visit returns.
func Parse(data []byte) (*File, error) {
	if len(data) < HeaderSize {
		return nil, errorf(0, "file too short: %d bytes", len(data))
	}
	if string(data[:4]) != Magic {
		return nil, errorf(0, "bad magic %q", data[:4])
	}
	le := binary.LittleEndian
	h := Header{
		Version:  data[4],
		NumSorts: data[5],
		NumTerms: le.Uint32(data[8:]),
		NumThms:  le.Uint32(data[12:]),
		PTerms:   le.Uint32(data[16:]),
		PThms:    le.Uint32(data[20:]),
		PProof:   le.Uint32(data[24:]),
		PIndex:   le.Uint64(data[32:]),
	}
	if h.Version != Version {
		return nil, errorf(4, "unsupported version %d", h.Version)
	}
	size := uint64(len(data))
	if HeaderSize+uint64(h.NumSorts) > size {
		return nil, errorf(HeaderSize, "sort table past end of file")
	}
	if uint64(h.PTerms)+termEntrySize*uint64(h.NumTerms) > size {
		return nil, errorf(16, "term table past end of file")
	}
	if uint64(h.PThms)+thmEntrySize*uint64(h.NumThms) > size {
		return nil, errorf(20, "theorem table past end of file")
	}
	if uint64(h.PProof) >= size {
		return nil, errorf(24, "statement stream past end of file")
	}

	sorts := make([]kernel.Sort, h.NumSorts)
	for i := range sorts {
		s := kernel.Sort(data[HeaderSize+i])
		if !s.Valid() {
			return nil, errorf(uint64(HeaderSize+i), "sort %d: invalid modifiers %#02x", i, uint8(s))
		}
		sorts[i] = s
	}
	return &File{Header: h, Sorts: sorts, data: data}, nil
}
