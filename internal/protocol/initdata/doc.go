// Package initdata extracts key ids from EME initialization data.
//
// Supported formats
//
//   - cenc: a concatenation of ISO/IEC 23001-7 'pssh' boxes. Key ids are
//     read from version 1 boxes of any system; version 0 boxes carry
//     system-specific payloads and are skipped.
//   - webm: the init data is the key id itself.
//
// BuildPSSH produces a version 1 Clear Key box for packagers and tests.
package initdata
