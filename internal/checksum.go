package internal

import "hash/crc32"

// chunk blobs carry an IEEE CRC32 of their uncompressed content
var crcTable = crc32.IEEETable

func CalculateCRC32(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// VerifyCRC32 reports whether data matches a checksum from CalculateCRC32.
func VerifyCRC32(data []byte, crc uint32) bool {
	return CalculateCRC32(data) == crc
}
