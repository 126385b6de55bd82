package domain

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"io"

	"github.com/pkg/errors"
)

// CredentialStatus is the decoded per-index state of a credential on a token
// status list.
type CredentialStatus int

const (
	StatusValid     CredentialStatus = 0
	StatusRevoked   CredentialStatus = 1
	StatusSuspended CredentialStatus = 2
)

// TokenStatusList is a decoded bit-packed status list: Bits entries of Bits
// width each, packed little endian within every byte.
type TokenStatusList struct {
	Bits int
	List []byte
}

var supportedBitWidths = map[int]bool{1: true, 2: true, 4: true, 8: true}

// NewTokenStatusList inflates the base64url encoded, zlib compressed lst
// claim of a status list token. maxBytes caps the inflated size so a
// malicious list cannot act as a decompression bomb.
func NewTokenStatusList(bits int, lst string, maxBytes int64) (*TokenStatusList, error) {
	if !supportedBitWidths[bits] {
		return nil, errors.Errorf("unsupported status list bit width %d", bits)
	}
	compressed, err := base64.RawURLEncoding.DecodeString(lst)
	if err != nil {
		return nil, errors.Wrap(err, "status list is not base64url")
	}
	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errors.Wrap(err, "status list is not zlib compressed")
	}
	defer func() { _ = reader.Close() }()

	inflated, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "inflating status list")
	}
	if int64(len(inflated)) > maxBytes {
		return nil, errors.Errorf("status list exceeds the %d byte limit", maxBytes)
	}
	return &TokenStatusList{Bits: bits, List: inflated}, nil
}

// Status reads the entry at idx. An index beyond the end of the list and a
// bit value outside the known status range are both hard errors, never
// silently valid.
func (l *TokenStatusList) Status(idx int) (CredentialStatus, error) {
	if idx < 0 {
		return 0, errors.New("status list index is negative")
	}
	position := idx * l.Bits / 8
	if position >= len(l.List) {
		return 0, errors.Errorf("status list index %d is out of range", idx)
	}
	bitIndex := (idx * l.Bits) % 8
	mask := byte((1<<l.Bits)-1) << bitIndex
	value := (l.List[position] & mask) >> bitIndex

	switch status := CredentialStatus(value); status {
	case StatusValid, StatusRevoked, StatusSuspended:
		return status, nil
	default:
		return 0, errors.Errorf("unknown credential status value %d", value)
	}
}

// StatusListReference points from a credential into a remote status list:
// where to fetch it, which entry belongs to the credential and which issuer
// must control the list.
type StatusListReference struct {
	URI            string
	Index          int
	ExpectedIssuer string
}

// StatusListReferences extracts the token status list reference from a
// disclosed claim set. A credential without a status claim has no references
// and is implicitly valid.
func StatusListReferences(claims map[string]any, issuer string) ([]StatusListReference, error) {
	status, ok := claims["status"].(map[string]any)
	if !ok {
		return nil, nil
	}
	statusList, ok := status["status_list"].(map[string]any)
	if !ok {
		return nil, nil
	}
	uri, okURI := statusList["uri"].(string)
	idx, okIdx := statusList["idx"].(float64)
	if !okURI || !okIdx {
		return nil, errors.New("status_list claim is missing uri or idx")
	}
	return []StatusListReference{{URI: uri, Index: int(idx), ExpectedIssuer: issuer}}, nil
}
