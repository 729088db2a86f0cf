package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs tokens with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs tokens with a shared HMAC secret.
	MethodHS256 SigningMethod = "hs256"
)

// Token purposes. Every caller that accepts a token must check the purpose
// claim: an access token is never valid where a reset token is expected, and
// vice versa.
const (
	PurposeAccess = "access"
	PurposeReset  = "password_reset"
)

var (
	// ErrExpired is returned when a token's expiry has passed.
	ErrExpired = errors.New("token expired")
	// ErrMalformed is returned when a token cannot be parsed at all.
	ErrMalformed = errors.New("token malformed")
	// ErrSignature is returned when a token's signature does not verify.
	ErrSignature = errors.New("token signature invalid")
)

// Config holds codec tuning parameters. Instances are configured during
// initialization and then treated as immutable.
type Config struct {
	AccessTTL     time.Duration
	ResetTTL      time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// Claims is the signed claim set carried by every token issued by the codec:
// subject (user id), a session or reset-request reference, a purpose tag, and
// the registered issued-at/expiry claims.
type Claims struct {
	Purpose   string `json:"purpose"`
	SessionID string `json:"sid,omitempty"`
	RequestID string `json:"rid,omitempty"`
	jwt.RegisteredClaims
}

// Manager is a stateless token codec: issuance and verification are pure
// functions of the configured key material and the clock. Tokens are never
// stored server-side.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a ready [Manager].
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid access TTL configuration")
	}
	if cfg.ResetTTL <= 0 {
		return nil, errors.New("invalid reset TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key")
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// IssueAccess creates a signed access token whose claims reference the given
// session. Validity of the session itself is re-checked separately on every
// use; the token only proves possession and integrity.
func (j *Manager) IssueAccess(userID, sessionID string) (string, error) {
	return j.issue(Claims{
		Purpose:   PurposeAccess,
		SessionID: sessionID,
	}, userID, j.config.AccessTTL)
}

// IssueReset creates a signed password-reset token bound to a reset request.
func (j *Manager) IssueReset(userID, requestID string) (string, error) {
	return j.issue(Claims{
		Purpose:   PurposeReset,
		RequestID: requestID,
	}, userID, j.config.ResetTTL)
}

func (j *Manager) issue(claims Claims, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    j.config.Issuer,
	}

	token := jwt.NewWithClaims(j.getMethod(), claims)

	signKey, err := j.getSignKey()
	if err != nil {
		return "", err
	}

	return token.SignedString(signKey)
}

// Parse verifies signature, expiry, and issuer, and returns the claim set.
// Failures map to [ErrExpired], [ErrSignature], or [ErrMalformed].
func (j *Manager) Parse(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, false)
}

// ParseIgnoringExpiry verifies signature and issuer but accepts a token whose
// expiry has passed. Used only by the refresh flow, so that an access token
// past its short lifetime can still be read for its session reference.
func (j *Manager) ParseIgnoringExpiry(tokenStr string) (*Claims, error) {
	return j.parse(tokenStr, true)
}

func (j *Manager) parse(tokenStr string, ignoreExpiry bool) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.getMethod().Alg()}),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if ignoreExpiry {
		options = append(options, jwt.WithoutClaimsValidation())
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.getMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return j.getVerifyKey()
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrMalformed
	}
	if ignoreExpiry {
		// Signature was verified; issuer still has to hold even though the
		// registered-claims validation was skipped.
		if j.config.Issuer != "" && claims.Issuer != j.config.Issuer {
			return nil, ErrMalformed
		}
	} else if !token.Valid {
		return nil, ErrMalformed
	}

	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignature
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

func (j *Manager) getMethod() jwt.SigningMethod {
	switch j.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (j *Manager) getSignKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(j.config.PrivateKey)
	}
}

func (j *Manager) getVerifyKey() (interface{}, error) {
	switch j.config.SigningMethod {
	case MethodHS256:
		return j.config.PrivateKey, nil
	default:
		return parseEdPublicKey(j.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
