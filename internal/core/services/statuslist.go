package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/cache"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/domain"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/core/ports"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/httpclient"
	"github.com/swiyu-admin-ch/swiyu-verifier-sub003/internal/log"
)

const statusListTokenType = "statuslist+jwt"

// StatusListResolverConfig tunes the status list fetcher.
type StatusListResolverConfig struct {
	// AcceptedHosts is the allow-list of status list hosts. Empty accepts any host.
	AcceptedHosts []string
	// CacheTTL caches resolved lists per uri. Zero disables caching.
	CacheTTL time.Duration
	// MaxPayloadSize is the hard ceiling for the fetched body and the inflated list.
	MaxPayloadSize int64
}

// StatusListResolver fetches status list tokens over https with host
// allow-listing, a payload ceiling and a TTL cache keyed by uri.
type StatusListResolver struct {
	client *httpclient.Client
	cache  cache.Cache
	cfg    StatusListResolverConfig
}

// NewStatusListResolver creates a StatusListResolver
func NewStatusListResolver(client *httpclient.Client, c cache.Cache, cfg StatusListResolverConfig) ports.StatusListResolver {
	if cfg.CacheTTL <= 0 {
		c = cache.NullCache()
	}
	return &StatusListResolver{client: client, cache: c, cfg: cfg}
}

// Resolve returns the raw status list token behind uri
func (s *StatusListResolver) Resolve(ctx context.Context, uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", errors.Wrapf(err, "status list uri %q is invalid", uri)
	}
	if parsed.Scheme != "https" {
		return "", errors.Errorf("status list uri %q does not use https", uri)
	}
	if !s.hostAccepted(parsed.Hostname()) {
		return "", errors.Errorf("status list host %q is not in the allow-list", parsed.Hostname())
	}

	var raw string
	if s.cache.Get(ctx, statusListCacheKey(uri), &raw) {
		return raw, nil
	}

	body, err := s.client.Get(ctx, uri, s.cfg.MaxPayloadSize, nil)
	if err != nil {
		return "", errors.Wrapf(err, "fetching status list %q", uri)
	}
	raw = string(body)

	if err := s.cache.Set(ctx, statusListCacheKey(uri), raw, s.cfg.CacheTTL); err != nil {
		log.Warn(ctx, "could not cache status list", "err", err, "uri", uri)
	}
	return raw, nil
}

func (s *StatusListResolver) hostAccepted(host string) bool {
	if len(s.cfg.AcceptedHosts) == 0 {
		return true
	}
	for _, accepted := range s.cfg.AcceptedHosts {
		if strings.EqualFold(accepted, host) {
			return true
		}
	}
	return false
}

func statusListCacheKey(uri string) string {
	return "statuslist:" + uri
}

// StatusListVerifier decodes the status list references of a credential and
// maps the per-index status to the verification outcome.
type StatusListVerifier struct {
	resolver     ports.StatusListResolver
	didResolver  ports.DIDResolver
	maxListSize  int64
	acceptedAlgs []string
}

// NewStatusListVerifier creates a StatusListVerifier
func NewStatusListVerifier(resolver ports.StatusListResolver, didResolver ports.DIDResolver, maxListSize int64, acceptedAlgs []string) ports.StatusListVerifier {
	return &StatusListVerifier{
		resolver:     resolver,
		didResolver:  didResolver,
		maxListSize:  maxListSize,
		acceptedAlgs: acceptedAlgs,
	}
}

// VerifyStatus checks every status list reference found in the claims. A
// credential without a status claim passes. Any fetch, signature or decode
// problem is unresolvable_status_list, only a genuine revocation or
// suspension maps to its own code.
func (v *StatusListVerifier) VerifyStatus(ctx context.Context, claims map[string]any, issuer string) error {
	references, err := domain.StatusListReferences(claims, issuer)
	if err != nil {
		return domain.NewVerificationError(domain.ErrUnresolvableStatusList, "credential carries a malformed status claim")
	}
	for _, ref := range references {
		if err := v.verifyReference(ctx, ref); err != nil {
			return err
		}
	}
	return nil
}

func (v *StatusListVerifier) verifyReference(ctx context.Context, ref domain.StatusListReference) error {
	raw, err := v.resolver.Resolve(ctx, ref.URI)
	if err != nil {
		log.Warn(ctx, "status list unresolvable", "err", err, "uri", ref.URI)
		return domain.NewVerificationError(domain.ErrUnresolvableStatusList, "status list %s could not be resolved", ref.URI)
	}

	list, err := v.decodeStatusListToken(ctx, raw, ref)
	if err != nil {
		log.Warn(ctx, "status list rejected", "err", err, "uri", ref.URI)
		return domain.NewVerificationError(domain.ErrUnresolvableStatusList, "status list %s could not be validated", ref.URI)
	}

	status, err := list.Status(ref.Index)
	if err != nil {
		log.Warn(ctx, "status list index unreadable", "err", err, "uri", ref.URI, "idx", ref.Index)
		return domain.NewVerificationError(domain.ErrUnresolvableStatusList, "status of credential could not be read from %s", ref.URI)
	}

	switch status {
	case domain.StatusValid:
		return nil
	case domain.StatusRevoked:
		return domain.NewVerificationError(domain.ErrCredentialRevoked, "credential has been revoked")
	case domain.StatusSuspended:
		return domain.NewVerificationError(domain.ErrCredentialSuspended, "credential is suspended")
	default:
		return domain.NewVerificationError(domain.ErrUnresolvableStatusList, "credential has an unknown status")
	}
}

// decodeStatusListToken validates the status list token: signature against
// the issuer's DID key, the statuslist+jwt type, and the issuer binding to
// the credential issuer. Cross-issuer status lists are rejected.
func (v *StatusListVerifier) decodeStatusListToken(ctx context.Context, raw string, ref domain.StatusListReference) (*domain.TokenStatusList, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("status list token has no kid header")
		}
		return v.didResolver.ResolveKey(ctx, kid)
	}, jwt.WithValidMethods(v.acceptedAlgs))
	if err != nil {
		return nil, errors.Wrap(err, "status list token verification failed")
	}

	if typ, _ := token.Header["typ"].(string); typ != statusListTokenType {
		return nil, errors.Errorf("status list token has type %q", typ)
	}
	iss, _ := claims["iss"].(string)
	if iss != ref.ExpectedIssuer {
		return nil, errors.Errorf("status list issuer %q does not match credential issuer", iss)
	}
	if sub, _ := claims["sub"].(string); sub != "" && sub != ref.URI {
		return nil, errors.Errorf("status list subject %q does not match its uri", sub)
	}

	statusList, ok := claims["status_list"].(map[string]any)
	if !ok {
		return nil, errors.New("status list token has no status_list claim")
	}
	bits, okBits := statusList["bits"].(float64)
	lst, okLst := statusList["lst"].(string)
	if !okBits || !okLst {
		return nil, errors.New("status_list claim is missing bits or lst")
	}
	return domain.NewTokenStatusList(int(bits), lst, v.maxListSize)
}
