// Package hash checksums exported objects with CRC32-Castagnoli.
//
// CRC32C is hardware accelerated on x86 (SSE4.2) and ARM and detects all burst errors up
// to 32 bits, which covers truncated or bit-flipped uploads.
package hash
