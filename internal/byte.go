package internal

import "encoding/binary"

// BytesToUInt32LittleEndian reads the first four bytes of b.
func BytesToUInt32LittleEndian(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

func UInt32ToBytesLittleEndian(i uint32) [4]byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], i)
	return b
}
