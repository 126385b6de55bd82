package domain

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

const (
	sdClaim     = "_sd"
	sdAlgClaim  = "_sd_alg"
	arrayDigest = "..."
)

// registeredClaimNames are payload claims that carry the credential's own
// semantics and must never arrive as a disclosure.
var registeredClaimNames = map[string]bool{
	"iss":    true,
	"nbf":    true,
	"exp":    true,
	"cnf":    true,
	"vct":    true,
	"status": true,
}

// Disclosure is one decoded selective disclosure: the raw base64url string as
// presented plus its parsed salt/name/value triple. Array element disclosures
// have no name.
type Disclosure struct {
	Raw   string
	Salt  string
	Name  string
	Value any
}

// SdJWT is a structurally decoded SD-JWT presentation: the issuer signed JWT,
// the presented disclosures and, when the holder proved possession, the key
// binding JWT.
type SdJWT struct {
	IssuerJWT      string
	Disclosures    []Disclosure
	KeyBindingJWT  string
	presentedParts string
}

// ParseSdJWT splits an SD-JWT presentation on the tilde separator. The last
// segment is a key binding JWT unless the presentation ends with a tilde.
func ParseSdJWT(token string) (*SdJWT, error) {
	parts := strings.Split(token, "~")
	if len(parts) < 1 || strings.Count(parts[0], ".") != 2 {
		return nil, errors.New("token is not an SD-JWT")
	}

	sd := &SdJWT{IssuerJWT: parts[0]}
	disclosureParts := parts[1:]
	if !strings.HasSuffix(token, "~") {
		sd.KeyBindingJWT = parts[len(parts)-1]
		disclosureParts = parts[1 : len(parts)-1]
	} else {
		disclosureParts = disclosureParts[:len(disclosureParts)-1]
	}

	for _, raw := range disclosureParts {
		if raw == "" {
			return nil, errors.New("empty disclosure in SD-JWT")
		}
		d, err := parseDisclosure(raw)
		if err != nil {
			return nil, err
		}
		sd.Disclosures = append(sd.Disclosures, *d)
	}

	sd.presentedParts = parts[0] + "~"
	for _, raw := range disclosureParts {
		sd.presentedParts += raw + "~"
	}
	return sd, nil
}

func parseDisclosure(raw string) (*Disclosure, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.Wrap(err, "disclosure is not base64url")
	}
	var elems []any
	if err := json.Unmarshal(decoded, &elems); err != nil {
		return nil, errors.Wrap(err, "disclosure is not a JSON array")
	}
	d := &Disclosure{Raw: raw}
	switch len(elems) {
	case 2: // array element disclosure: [salt, value]
		salt, ok := elems[0].(string)
		if !ok {
			return nil, errors.New("disclosure salt is not a string")
		}
		d.Salt, d.Value = salt, elems[1]
	case 3: // object property disclosure: [salt, name, value]
		salt, okSalt := elems[0].(string)
		name, okName := elems[1].(string)
		if !okSalt || !okName {
			return nil, errors.New("disclosure salt or name is not a string")
		}
		d.Salt, d.Name, d.Value = salt, name, elems[2]
	default:
		return nil, errors.New("disclosure has an unexpected number of elements")
	}
	return d, nil
}

// Digest returns the base64url encoded sha-256 digest of the raw disclosure,
// the value referenced from _sd arrays in the payload.
func (d Disclosure) Digest() string {
	sum := sha256.Sum256([]byte(d.Raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// SdHash is the value the key binding JWT has to carry in its sd_hash claim:
// the sha-256 over the issuer JWT and the presented disclosures.
func (s *SdJWT) SdHash() string {
	sum := sha256.Sum256([]byte(s.presentedParts))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ResolveClaims reconstructs the disclosed claim map from the verified issuer
// JWT payload. Every presented disclosure must be referenced by a digest in
// the payload, and no digest may be referenced twice.
func (s *SdJWT) ResolveClaims(payload map[string]any) (map[string]any, error) {
	byDigest := make(map[string]Disclosure, len(s.Disclosures))
	for _, d := range s.Disclosures {
		digest := d.Digest()
		if _, exists := byDigest[digest]; exists {
			return nil, errors.New("duplicate disclosure in SD-JWT")
		}
		byDigest[digest] = d
	}

	used := make(map[string]bool, len(byDigest))
	resolved, err := resolveObject(payload, byDigest, used)
	if err != nil {
		return nil, err
	}
	for digest, d := range byDigest {
		if !used[digest] {
			return nil, errors.Errorf("disclosure %q does not match any digest in the payload", d.Name)
		}
	}
	return resolved, nil
}

func resolveObject(obj map[string]any, byDigest map[string]Disclosure, used map[string]bool) (map[string]any, error) {
	out := make(map[string]any, len(obj))
	for key, value := range obj {
		if key == sdClaim || key == sdAlgClaim {
			continue
		}
		resolved, err := resolveValue(value, byDigest, used)
		if err != nil {
			return nil, err
		}
		out[key] = resolved
	}

	digests, ok := obj[sdClaim]
	if !ok {
		return out, nil
	}
	digestList, ok := digests.([]any)
	if !ok {
		return nil, errors.New("_sd claim is not an array")
	}
	for _, entry := range digestList {
		digest, ok := entry.(string)
		if !ok {
			return nil, errors.New("_sd digest is not a string")
		}
		d, found := byDigest[digest]
		if !found {
			continue
		}
		if used[digest] {
			return nil, errors.New("disclosure digest referenced twice")
		}
		used[digest] = true
		if d.Name == "" {
			return nil, errors.New("array disclosure referenced from _sd")
		}
		if d.Name == sdClaim || d.Name == sdAlgClaim || d.Name == arrayDigest {
			return nil, errors.Errorf("disclosure uses the reserved name %q", d.Name)
		}
		if registeredClaimNames[d.Name] {
			return nil, errors.Errorf("registered claim %q cannot be selectively disclosed", d.Name)
		}
		if _, exists := out[d.Name]; exists {
			return nil, errors.Errorf("disclosure %q would override an existing claim", d.Name)
		}
		resolved, err := resolveValue(d.Value, byDigest, used)
		if err != nil {
			return nil, err
		}
		out[d.Name] = resolved
	}
	return out, nil
}

func resolveValue(value any, byDigest map[string]Disclosure, used map[string]bool) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		if digest, ok := arrayElementDigest(v); ok {
			d, found := byDigest[digest]
			if !found {
				return nil, nil
			}
			if used[digest] {
				return nil, errors.New("disclosure digest referenced twice")
			}
			used[digest] = true
			return resolveValue(d.Value, byDigest, used)
		}
		return resolveObject(v, byDigest, used)
	case []any:
		out := make([]any, 0, len(v))
		for _, elem := range v {
			if m, ok := elem.(map[string]any); ok {
				if digest, isDigest := arrayElementDigest(m); isDigest {
					d, found := byDigest[digest]
					if !found {
						continue
					}
					if used[digest] {
						return nil, errors.New("disclosure digest referenced twice")
					}
					used[digest] = true
					resolved, err := resolveValue(d.Value, byDigest, used)
					if err != nil {
						return nil, err
					}
					out = append(out, resolved)
					continue
				}
			}
			resolved, err := resolveValue(elem, byDigest, used)
			if err != nil {
				return nil, err
			}
			out = append(out, resolved)
		}
		return out, nil
	default:
		return value, nil
	}
}

func arrayElementDigest(m map[string]any) (string, bool) {
	if len(m) != 1 {
		return "", false
	}
	digest, ok := m[arrayDigest].(string)
	return digest, ok
}
