package frame

// CalculateChecksum sums data modulo 256. It is the building block for both
// the length checksum and the data checksum defined by the PN532 frame
// format: a frame is well-formed iff its length byte plus its length
// checksum, and the sum of its data bytes plus its data checksum, are both
// congruent to 0 mod 256.
func CalculateChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// CalculateLengthChecksum returns the two's-complement of length, so that
// length + CalculateLengthChecksum(length) == 0 (mod 256).
func CalculateLengthChecksum(length byte) byte {
	return ^length + 1
}

// CalculateDataChecksum returns the two's-complement of the sum of tfi and
// data, so that tfi + sum(data) + CalculateDataChecksum(tfi, data) == 0
// (mod 256).
func CalculateDataChecksum(tfi byte, data []byte) byte {
	sum := tfi + CalculateChecksum(data)
	return ^sum + 1
}

// ValidateChecksum reports whether data sums to a non-zero value mod 256,
// i.e. whether the caller should NACK. A checksum is valid (no NACK) when
// the sum is exactly zero.
func ValidateChecksum(data []byte) bool {
	return CalculateChecksum(data) != 0
}
