package commands

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"cdmbridge/internal/domain"
	"cdmbridge/internal/protocol/initdata"
	"cdmbridge/internal/services/acquire"
)

// parseKeyIDs decodes hex key ids, ignoring dashes so UUID forms work.
func parseKeyIDs(in []string) ([]domain.KeyID, error) {
	out := make([]domain.KeyID, 0, len(in))
	for _, s := range in {
		b, err := hex.DecodeString(strings.ReplaceAll(s, "-", ""))
		if err != nil {
			return nil, fmt.Errorf("key id %q: %w", s, err)
		}
		if len(b) != 16 {
			return nil, fmt.Errorf("key id %q: want 16 bytes, got %d", s, len(b))
		}
		out = append(out, b)
	}
	return out, nil
}

// parseSubsamples reads "clear:protected,clear:protected".
func parseSubsamples(s string) ([]domain.Subsample, error) {
	if s == "" {
		return nil, nil
	}
	var out []domain.Subsample
	for _, part := range strings.Split(s, ",") {
		c, p, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("subsample %q: want clear:protected", part)
		}
		clearN, err := strconv.ParseUint(c, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("subsample %q: %w", part, err)
		}
		protN, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("subsample %q: %w", part, err)
		}
		out = append(out, domain.Subsample{ClearBytes: uint32(clearN), ProtectedBytes: uint32(protN)})
	}
	return out, nil
}

// licenseRequest builds an acquisition request from either raw init data
// (hex) or a list of key ids.
func licenseRequest(licenseType, initDataType, initDataHex string, kids []domain.KeyID) (acquire.Request, error) {
	req := acquire.Request{
		LicenseType:  domain.ParseLicenseType(licenseType),
		InitDataType: initDataType,
	}
	switch {
	case initDataHex != "":
		b, err := hex.DecodeString(initDataHex)
		if err != nil {
			return acquire.Request{}, fmt.Errorf("init data: %w", err)
		}
		req.InitData = b
	case len(kids) == 0:
		return acquire.Request{}, fmt.Errorf("either --kid or --init-data is required")
	case initDataType == "webm":
		req.InitData = kids[0]
	default:
		req.InitData = initdata.BuildPSSH(kids...)
	}
	return req, nil
}
