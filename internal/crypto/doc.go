// Package crypto exposes the primitives used by cdmbridge.
//
// Contents
//
//   - Protected sample encryption/decryption with AES-128 in CTR or CBC
//     mode, honouring CENC subsample maps (EncryptSample, DecryptSample)
//   - IV normalisation per cipher mode (NormalizeIV)
//   - Content key derivation from a master secret and key id (DeriveContentKey)
//   - Passphrase-sealed blobs for persisted licenses (Seal, Open)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// # Notes
//
// Sample functions never change the length of the data: the output is
// always exactly as long as the input. Callers should treat keys and
// plaintext as sensitive and rely on Wipe when practical.
package crypto
