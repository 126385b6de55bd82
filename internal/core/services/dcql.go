package services

import (
	"context"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
)

// evaluateDcql runs the DCQL flow: every credential query must be answered
// by the wallet, every answer is cryptographically verified, filtered by the
// query's metadata and checked against the requested claims. The result maps
// each query id to the disclosed claims of its first match.
func (s *Verification) evaluateDcql(ctx context.Context, management *domain.Management, tokens map[string][]string) (map[string]any, error) {
	query := management.DcqlQuery
	results := make(map[string]any, len(query.Credentials))

	for _, credentialQuery := range query.Credentials {
		presented, ok := tokens[credentialQuery.ID]
		if !ok || len(presented) == 0 {
			return nil, domain.NewVerificationError(domain.ErrInvalidPresentationSubmission, "no credential presented for query %q", credentialQuery.ID)
		}
		// multiplicity is checked before any cryptographic work
		if !credentialQuery.Multiple && len(presented) > 1 {
			return nil, domain.NewVerificationError(domain.ErrInvalidPresentationSubmission, "query %q allows a single credential, %d were presented", credentialQuery.ID, len(presented))
		}

		verifier, err := s.registry.ForFormat(credentialQuery.Format)
		if err != nil {
			return nil, err
		}
		verified := make([]*ports.VerifiedCredential, 0, len(presented))
		for _, token := range presented {
			credential, err := verifier.Verify(ctx, token, management)
			if err != nil {
				return nil, err
			}
			verified = append(verified, credential)
		}

		matches := filterByMeta(verified, credentialQuery.Meta)
		if len(matches) == 0 {
			return nil, domain.NewVerificationError(domain.ErrCredentialInvalid, "no presented credential matches the requested type for query %q", credentialQuery.ID)
		}

		match := matches[0]
		if err := checkDcqlClaims(credentialQuery, match.Claims); err != nil {
			return nil, err
		}
		results[credentialQuery.ID] = match.Claims
	}

	if err := checkCredentialSets(query, results); err != nil {
		return nil, err
	}
	return results, nil
}

func filterByMeta(credentials []*ports.VerifiedCredential, meta *domain.DcqlCredentialMeta) []*ports.VerifiedCredential {
	if meta == nil || len(meta.VctValues) == 0 {
		return credentials
	}
	var matches []*ports.VerifiedCredential
	for _, credential := range credentials {
		vct, _ := credential.Claims["vct"].(string)
		for _, accepted := range meta.VctValues {
			if vct == accepted {
				matches = append(matches, credential)
				break
			}
		}
	}
	return matches
}

func checkDcqlClaims(query domain.DcqlCredential, claims map[string]any) error {
	for _, claim := range query.Claims {
		selected, err := selectDcqlPath(claims, claim.Path)
		if err != nil || len(selected) == 0 {
			return domain.NewVerificationError(domain.ErrCredentialInvalid, "requested claim %v is not disclosed", claim.Path)
		}
		if len(claim.Values) == 0 {
			continue
		}
		if !anyValueMatches(selected, claim.Values) {
			return domain.NewVerificationError(domain.ErrCredentialInvalid, "requested claim %v has none of the accepted values", claim.Path)
		}
	}
	return nil
}

func anyValueMatches(selected []any, accepted []any) bool {
	for _, value := range selected {
		for _, want := range accepted {
			if value == want {
				return true
			}
		}
	}
	return false
}

// selectDcqlPath walks a DCQL claims path: strings select object keys,
// numbers select array indexes and null selects all elements of an array.
func selectDcqlPath(claims map[string]any, path []any) ([]any, error) {
	current := []any{claims}
	for _, element := range path {
		var next []any
		switch selector := element.(type) {
		case string:
			for _, node := range current {
				obj, ok := node.(map[string]any)
				if !ok {
					continue
				}
				if value, exists := obj[selector]; exists {
					next = append(next, value)
				}
			}
		case float64:
			idx := int(selector)
			for _, node := range current {
				arr, ok := node.([]any)
				if !ok || idx < 0 || idx >= len(arr) {
					continue
				}
				next = append(next, arr[idx])
			}
		case nil:
			for _, node := range current {
				arr, ok := node.([]any)
				if !ok {
					continue
				}
				next = append(next, arr...)
			}
		default:
			return nil, domain.NewVerificationError(domain.ErrInvalidPresentationSubmission, "claim path element %v is not a valid selector", element)
		}
		current = next
	}
	return current, nil
}

// checkCredentialSets applies the N-of-M constraints: every required set
// needs at least one option whose query ids all produced a match.
func checkCredentialSets(query *domain.DcqlQuery, results map[string]any) error {
	for _, set := range query.CredentialSets {
		if !set.IsRequired() {
			continue
		}
		if !anyOptionSatisfied(set.Options, results) {
			return domain.NewVerificationError(domain.ErrSubmissionConstraintViolated, "no credential set option is satisfied")
		}
	}
	return nil
}

func anyOptionSatisfied(options [][]string, results map[string]any) bool {
	for _, option := range options {
		satisfied := true
		for _, id := range option {
			if _, ok := results[id]; !ok {
				satisfied = false
				break
			}
		}
		if satisfied {
			return true
		}
	}
	return false
}
