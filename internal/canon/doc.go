// Package canon produces canonical JSON and content hashes for ledger state.
//
// Canonical JSON follows RFC 8785:
//   - Object keys sorted by UTF-16 code units
//   - No insignificant whitespace
//   - No HTML escaping; U+2028 and U+2029 are emitted literally
//   - Strings NFC normalized
//   - Floats and null are rejected
//
// Opaque byte sequences ([]byte) are emitted as standard base64 strings so
// they are never subject to Unicode normalization. Two ledgers with the same
// records and the same allocator counter always produce the same bytes, which
// is what makes digest comparison a valid "byte-for-byte identical" check.
package canon
