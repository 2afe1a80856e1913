// Package clearkey implements the W3C Clear Key license exchange format.
//
// A license request is a JSON object listing base64url key ids:
//
//	{"kids":["nrQFDeRLSAKTLifXUIPiZg"],"type":"temporary"}
//
// A license response is a JSON Web Key set of symmetric keys, encoded and
// decoded with go-jose:
//
//	{"keys":[{"kty":"oct","kid":"nrQFDeRLSAKTLifXUIPiZg","k":"FmY0xnWCPCNaSpRG-tUuTQ"}],"type":"temporary"}
package clearkey
