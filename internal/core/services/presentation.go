package services

import (
	"context"
	"encoding/json"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/jsonpath"
)

// verifyPresentationExchange runs the Presentation Exchange flow: every
// input descriptor is answered by a token located through the descriptor
// map, verified by its format strategy and re-checked against the
// descriptor's field constraints.
func (s *Verification) verifyPresentationExchange(ctx context.Context, management *domain.Management, response ports.WalletResponse) (map[string]any, error) {
	if response.PresentationSubmission == nil {
		return nil, domain.NewVerificationError(domain.ErrInvalidPresentationSubmission, "wallet response carries no presentation submission")
	}
	if response.VPToken == "" {
		return nil, domain.NewVerificationError(domain.ErrInvalidPresentationSubmission, "wallet response carries no vp_token")
	}

	definition := management.RequestedPresentation
	aggregated := map[string]any{}

	for _, descriptor := range definition.InputDescriptors {
		entry, err := descriptorMapEntry(response.PresentationSubmission, descriptor.ID)
		if err != nil {
			return nil, err
		}
		token, err := tokenAtPath(response.VPToken, entry.Path)
		if err != nil {
			return nil, err
		}

		verifier, err := s.registry.ForFormat(entry.Format)
		if err != nil {
			return nil, err
		}
		credential, err := verifier.Verify(ctx, token, management)
		if err != nil {
			return nil, err
		}

		if err := checkFieldConstraints(descriptor.Constraint.Fields, credential.Claims); err != nil {
			return nil, err
		}
		for name, value := range credential.Claims {
			aggregated[name] = value
		}
	}
	return aggregated, nil
}

func descriptorMapEntry(submission *domain.PresentationSubmission, descriptorID string) (*domain.PresentationDescriptor, error) {
	for i := range submission.DescriptorMap {
		if submission.DescriptorMap[i].ID == descriptorID {
			return &submission.DescriptorMap[i], nil
		}
	}
	return nil, domain.NewVerificationError(domain.ErrInvalidPresentationSubmission, "descriptor map has no entry for input descriptor %q", descriptorID)
}

// tokenAtPath locates one token inside the vp_token. The whole token is
// addressed as $, a member of a token array by index.
func tokenAtPath(vpToken string, path string) (string, error) {
	if path == "" || path == "$" {
		return vpToken, nil
	}
	var doc any
	if err := json.Unmarshal([]byte(vpToken), &doc); err != nil {
		return "", domain.NewVerificationError(domain.ErrInvalidPresentationSubmission, "descriptor path %q needs a structured vp_token", path)
	}
	value, err := jsonpath.Get(path, doc)
	if err != nil {
		return "", domain.NewVerificationError(domain.ErrInvalidPresentationSubmission, "descriptor path %q does not match the vp_token", path)
	}
	token, ok := value.(string)
	if !ok {
		return "", domain.NewVerificationError(domain.ErrInvalidPresentationSubmission, "descriptor path %q does not select a token", path)
	}
	return token, nil
}

// checkFieldConstraints re-applies the requested field constraints against
// the disclosed claims. Each field lists alternative paths, the first one
// that resolves wins; a field with no resolving path fails the presentation.
func checkFieldConstraints(fields []domain.Field, claims map[string]any) error {
	for _, field := range fields {
		value, found := resolveFieldValue(field.Path, claims)
		if !found {
			return domain.NewVerificationError(domain.ErrSubmissionConstraintViolated, "requested field %v is not disclosed", field.Path)
		}
		if field.Filter == nil {
			continue
		}
		stringValue, ok := value.(string)
		if field.Filter.Type != "string" || !ok || stringValue != field.Filter.Const {
			return domain.NewVerificationError(domain.ErrSubmissionConstraintViolated, "requested field %v does not satisfy its filter", field.Path)
		}
	}
	return nil
}

func resolveFieldValue(paths []string, claims map[string]any) (any, bool) {
	for _, path := range paths {
		value, err := jsonpath.Get(path, any(claims))
		if err != nil {
			continue
		}
		return value, true
	}
	return nil, false
}
