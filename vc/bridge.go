package vc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-connect/core"
)

const defaultTokenTTL = 10 * time.Minute

// Bridge wraps normalized adapter payloads as signed verifiable
// credentials. It is boundary-only serialization: the data itself comes
// from the registry's data source via the orchestrator, and any adapter
// failure surfaces as the mapped error, never a partial credential.
type Bridge struct {
	cfg Config
}

type Config struct {
	Issuer     string
	SigningKey []byte
	Method     jwt.SigningMethod
	TokenTTL   time.Duration
	Now        func() time.Time
}

// DataReader is the orchestrator surface the bridge pulls payloads from.
type DataReader interface {
	GetData(ctx context.Context, kind core.DataKind, req core.DataRequest) (map[string]any, error)
}

func New(cfg Config) (*Bridge, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, fmt.Errorf("vc: signing key is required")
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if cfg.Issuer == "" {
		cfg.Issuer = "go-connect"
	}
	if cfg.Method == nil {
		cfg.Method = jwt.SigningMethodHS256
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = defaultTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Bridge{cfg: cfg}, nil
}

// Issue pulls one normalized data product and signs it into a credential
// JWT. The response body is {jwt: <token>}.
func (b *Bridge) Issue(ctx context.Context, reader DataReader, kind core.DataKind, req core.DataRequest) (map[string]any, error) {
	if b == nil {
		return nil, fmt.Errorf("vc: bridge is not configured")
	}
	if reader == nil {
		return nil, fmt.Errorf("vc: data reader is required")
	}
	payload, err := reader.GetData(ctx, kind, req)
	if err != nil {
		return nil, err
	}
	token, err := b.Sign(kind, req, payload)
	if err != nil {
		return nil, err
	}
	return map[string]any{"jwt": token}, nil
}

// Sign encodes one payload as {vc: {type, credentialSubject}} claims.
func (b *Bridge) Sign(kind core.DataKind, req core.DataRequest, payload map[string]any) (string, error) {
	if b == nil {
		return "", fmt.Errorf("vc: bridge is not configured")
	}
	now := b.cfg.Now().UTC()
	claims := jwt.MapClaims{
		"iss": b.cfg.Issuer,
		"sub": req.UserID,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(b.cfg.TokenTTL)),
		"vc": map[string]any{
			"type":              []string{"VerifiableCredential", CredentialType(kind)},
			"credentialSubject": payload,
		},
	}
	token := jwt.NewWithClaims(b.cfg.Method, claims)
	signed, err := token.SignedString(b.cfg.SigningKey)
	if err != nil {
		return "", fmt.Errorf("vc: sign credential: %w", err)
	}
	return signed, nil
}

// Verify parses a credential issued by Sign, for tests and debugging
// surfaces.
func (b *Bridge) Verify(raw string) (jwt.MapClaims, error) {
	if b == nil {
		return nil, fmt.Errorf("vc: bridge is not configured")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != b.cfg.Method.Alg() {
			return nil, fmt.Errorf("vc: unexpected signing method %q", token.Method.Alg())
		}
		return b.cfg.SigningKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("vc: verify credential: %w", err)
	}
	return claims, nil
}

// CredentialType names the credential for one data product, e.g.
// FinancialAccountCredential for accounts.
func CredentialType(kind core.DataKind) string {
	switch kind {
	case core.DataKindAccounts:
		return "FinancialAccountCredential"
	case core.DataKindIdentity:
		return "FinancialIdentityCredential"
	case core.DataKindTransactions:
		return "FinancialTransactionCredential"
	default:
		return "FinancialDataCredential"
	}
}
