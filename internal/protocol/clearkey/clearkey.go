package clearkey

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-jose/go-jose/v4"

	"cdmbridge/internal/domain"
)

var (
	// ErrNoKeys is returned for a response that carries no usable key.
	ErrNoKeys = errors.New("clearkey: response contains no keys")

	// ErrBadKey is returned for a JWK that is not a symmetric key.
	ErrBadKey = errors.New("clearkey: key is not a symmetric key")
)

// Request is a Clear Key license request.
type Request struct {
	KeyIDs []string `json:"kids" validate:"required,min=1,dive,required,base64rawurl"`
	Type   string   `json:"type" validate:"omitempty,oneof=temporary persistent-license persistent-usage-record"`
}

// Response is a Clear Key license response.
type Response struct {
	Keys []jose.JSONWebKey `json:"keys"`
	Type string            `json:"type,omitempty"`
}

// Key is a decoded content key.
type Key struct {
	ID    domain.KeyID
	Value []byte
}

// EncodeKeyID returns the base64url form of a key id.
func EncodeKeyID(id domain.KeyID) string {
	return base64.RawURLEncoding.EncodeToString(id)
}

// DecodeKeyID parses the base64url form of a key id.
func DecodeKeyID(s string) (domain.KeyID, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("clearkey: bad key id %q: %w", s, err)
	}
	return domain.KeyID(b), nil
}

// NewRequest builds the request body for kids.
func NewRequest(licenseType domain.LicenseType, kids []domain.KeyID) ([]byte, error) {
	req := Request{Type: licenseType.String()}
	for _, k := range kids {
		req.KeyIDs = append(req.KeyIDs, EncodeKeyID(k))
	}
	return json.Marshal(req)
}

// ParseRequest decodes a request body and its key ids.
func ParseRequest(b []byte) (Request, []domain.KeyID, error) {
	var req Request
	if err := json.Unmarshal(b, &req); err != nil {
		return Request{}, nil, fmt.Errorf("clearkey: decode request: %w", err)
	}
	kids := make([]domain.KeyID, 0, len(req.KeyIDs))
	for _, s := range req.KeyIDs {
		k, err := DecodeKeyID(s)
		if err != nil {
			return Request{}, nil, err
		}
		kids = append(kids, k)
	}
	return req, kids, nil
}

// NewResponse builds the response body carrying keys.
func NewResponse(licenseType domain.LicenseType, keys []Key) ([]byte, error) {
	resp := Response{Type: licenseType.String()}
	for _, k := range keys {
		resp.Keys = append(resp.Keys, jose.JSONWebKey{
			Key:   k.Value,
			KeyID: EncodeKeyID(k.ID),
		})
	}
	return json.Marshal(resp)
}

// ParseResponse decodes a response body into keys.
func ParseResponse(b []byte) ([]Key, domain.LicenseType, error) {
	var resp Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return nil, domain.Temporary, fmt.Errorf("clearkey: decode response: %w", err)
	}
	if len(resp.Keys) == 0 {
		return nil, domain.Temporary, ErrNoKeys
	}
	keys := make([]Key, 0, len(resp.Keys))
	for _, jwk := range resp.Keys {
		value, ok := jwk.Key.([]byte)
		if !ok || len(value) == 0 {
			return nil, domain.Temporary, fmt.Errorf("%w: kid %q", ErrBadKey, jwk.KeyID)
		}
		id, err := DecodeKeyID(jwk.KeyID)
		if err != nil {
			return nil, domain.Temporary, err
		}
		keys = append(keys, Key{ID: id, Value: value})
	}
	return keys, domain.ParseLicenseType(resp.Type), nil
}
