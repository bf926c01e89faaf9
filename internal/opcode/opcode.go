// Package opcode defines the command words of the binary proof format.
//
// Every command in the file is a single byte carrying a 6-bit opcode and a
// 2-bit size tag, followed by 0, 1, 2 or 4 bytes of little-endian data.
// Statements, proof commands and unify commands share this encoding but use
// disjoint opcode ranges.
package opcode

import (
	"encoding/binary"
	"fmt"
)

const (
	// DataMask selects the size tag of a command byte.
	DataMask = 0xC0
	// OpMask selects the opcode of a command byte.
	OpMask = 0x3F

	data0  = 0x00
	data8  = 0x40
	data16 = 0x80
	data32 = 0xC0
)

// DataSize returns the number of data bytes following a command byte.
func DataSize(b byte) int {
	switch b & DataMask {
	case data8:
		return 1
	case data16:
		return 2
	case data32:
		return 4
	default:
		return 0
	}
}

// SizeTag returns the smallest size tag able to carry data.
func SizeTag(data uint32) byte {
	switch {
	case data == 0:
		return data0
	case data <= 0xFF:
		return data8
	case data <= 0xFFFF:
		return data16
	default:
		return data32
	}
}

// Append encodes op with data in its shortest form.
func Append(buf []byte, op uint8, data uint32) []byte {
	tag := SizeTag(data)
	buf = append(buf, op&OpMask|tag)
	switch tag {
	case data8:
		buf = append(buf, byte(data))
	case data16:
		buf = binary.LittleEndian.AppendUint16(buf, uint16(data))
	case data32:
		buf = binary.LittleEndian.AppendUint32(buf, data)
	}
	return buf
}

// Decode reads the command at the start of b. It returns the opcode, the
// data word and the encoded length; ok is false when b is too short.
func Decode(b []byte) (op uint8, data uint32, n int, ok bool) {
	if len(b) == 0 {
		return 0, 0, 0, false
	}
	size := DataSize(b[0])
	if len(b) < 1+size {
		return 0, 0, 0, false
	}
	switch size {
	case 1:
		data = uint32(b[1])
	case 2:
		data = uint32(binary.LittleEndian.Uint16(b[1:]))
	case 4:
		data = binary.LittleEndian.Uint32(b[1:])
	}
	return b[0] & OpMask, data, 1 + size, true
}

// Command is a decoded command word parameterised by its opcode family.
type Command[Op ~uint8] struct {
	Op   Op
	Data uint32
}

// ProofCommand is a single proof stack-machine instruction.
type ProofCommand = Command[Proof]

// UnifyCommand is a single unify instruction.
type UnifyCommand = Command[Unify]

// String renders the command as "op data".
func (c Command[Op]) String() string {
	if s, ok := any(c.Op).(fmt.Stringer); ok {
		return fmt.Sprintf("%s %d", s.String(), c.Data)
	}
	return fmt.Sprintf("op%#02x %d", uint8(c.Op), c.Data)
}
