// Package export persists matching results to a blobstore.
//
// A result is serialized with a codec, optionally compressed, and stored as one immutable
// object named runs/<run-id>.cvm. The object layout is:
//
//	magic "CVMR" | version u8 | compression u8 | codec name length u8 | codec name
//	uncompressed size u32 | compressed size u32 | payload | crc32c u32
//
// Integers are little-endian. The CRC32-Castagnoli trailer covers every preceding byte. A compressed size of 0 marks a raw payload, which is also used
// when compression saves less than 10%.
package export
