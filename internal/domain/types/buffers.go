package types

// CipherMode selects the block cipher mode used for protected samples.
type CipherMode int

const (
	// ModeCTR is AES-128 counter mode ('cenc'). No padding.
	ModeCTR CipherMode = iota
	// ModeCBC is AES-128 CBC over whole blocks ('cbc1'/'cbcs' without a
	// pattern). A trailing partial block is left in the clear.
	ModeCBC
)

// String returns the scheme name.
func (m CipherMode) String() string {
	if m == ModeCBC {
		return "cbc"
	}
	return "ctr"
}

// ParseCipherMode accepts "ctr"/"cenc" and "cbc"/"cbcs"/"cbc1".
func ParseCipherMode(s string) (CipherMode, bool) {
	switch s {
	case "ctr", "cenc":
		return ModeCTR, true
	case "cbc", "cbc1", "cbcs":
		return ModeCBC, true
	default:
		return ModeCTR, false
	}
}

// Subsample is one clear/protected run of a sample.
type Subsample struct {
	ClearBytes     uint32 `json:"clear"`
	ProtectedBytes uint32 `json:"protected"`
}

// InputBuffer describes a sample handed to the engine for decryption.
type InputBuffer struct {
	Data       []byte
	KeyID      KeyID
	IV         []byte
	Encrypted  bool
	Mode       CipherMode
	Subsamples []Subsample
}

// OutputBuffer receives plaintext. Data is allocated by the caller and
// must be at least as long as the input.
type OutputBuffer struct {
	Data []byte
}
