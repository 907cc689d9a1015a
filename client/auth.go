package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthProvider supplies credentials for transports that authenticate the
// client, such as the WebSocket transport's handshake headers.
type AuthProvider interface {
	// GetAuthHeaders returns headers to attach to the transport handshake.
	GetAuthHeaders() map[string]string

	// GetAuthToken returns the raw credential, for transports that carry
	// it outside headers.
	GetAuthToken() string
}

// bearerAuth implements AuthProvider with Bearer token authentication
type bearerAuth struct {
	token string
}

// NewBearerAuth creates a new Bearer token auth provider
func NewBearerAuth(token string) AuthProvider {
	return &bearerAuth{token: token}
}

// GetAuthHeaders implements AuthProvider.GetAuthHeaders
func (a *bearerAuth) GetAuthHeaders() map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", a.token),
	}
}

// GetAuthToken implements AuthProvider.GetAuthToken
func (a *bearerAuth) GetAuthToken() string {
	return a.token
}

// basicAuth implements AuthProvider with Basic authentication
type basicAuth struct {
	token string // computed base64 token
}

// NewBasicAuth creates a new Basic auth provider
func NewBasicAuth(username, password string) AuthProvider {
	token := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", username, password)))
	return &basicAuth{token: token}
}

// GetAuthHeaders implements AuthProvider.GetAuthHeaders
func (a *basicAuth) GetAuthHeaders() map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Basic %s", a.token),
	}
}

// GetAuthToken implements AuthProvider.GetAuthToken
func (a *basicAuth) GetAuthToken() string {
	return a.token
}

// customHeaderAuth implements AuthProvider with custom headers
type customHeaderAuth struct {
	headers map[string]string
	token   string
}

// NewCustomHeaderAuth creates a new custom header auth provider
func NewCustomHeaderAuth(headers map[string]string, token string) AuthProvider {
	return &customHeaderAuth{
		headers: headers,
		token:   token,
	}
}

// GetAuthHeaders implements AuthProvider.GetAuthHeaders
func (a *customHeaderAuth) GetAuthHeaders() map[string]string {
	return a.headers
}

// GetAuthToken implements AuthProvider.GetAuthToken
func (a *customHeaderAuth) GetAuthToken() string {
	return a.token
}

// jwtAuth implements AuthProvider by minting short-lived HS256 tokens. A
// token is reused until it is within a minute of expiring.
type jwtAuth struct {
	secret  []byte
	subject string
	ttl     time.Duration

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewJWTAuth creates an auth provider that signs HS256 tokens with the
// given secret. The subject becomes the token's sub claim.
func NewJWTAuth(secret []byte, subject string, ttl time.Duration) AuthProvider {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &jwtAuth{secret: secret, subject: subject, ttl: ttl}
}

// GetAuthHeaders implements AuthProvider.GetAuthHeaders
func (a *jwtAuth) GetAuthHeaders() map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", a.GetAuthToken()),
	}
}

// GetAuthToken implements AuthProvider.GetAuthToken
func (a *jwtAuth) GetAuthToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	if a.token != "" && now.Add(time.Minute).Before(a.expiresAt) {
		return a.token
	}

	expiresAt := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   a.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		// HS256 signing only fails on a non-[]byte key, which the
		// constructor rules out.
		return ""
	}
	a.token = signed
	a.expiresAt = expiresAt
	return signed
}

// NewAuthInterceptor records the provider's credential on the invocation and
// converts credential-rejection codes (401, 403) reported by the server into
// an AuthError, so callers can distinguish bad credentials from a failing
// tool.
func NewAuthInterceptor(provider AuthProvider) Interceptor {
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *Invocation) (*ToolResult, error) {
			if provider != nil {
				inv.Meta["auth_token"] = provider.GetAuthToken()
			}
			result, err := next(ctx, inv)
			if err != nil && isAuthRejection(err) {
				return nil, NewAuthError("server rejected credentials", err)
			}
			return result, err
		}
	}
}

func isAuthRejection(err error) bool {
	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		return srvErr.Code == 401 || srvErr.Code == 403
	}
	var toolErr *ToolExecutionError
	if errors.As(err, &toolErr) {
		return toolErr.Code == 401 || toolErr.Code == 403
	}
	return false
}

// noAuth implements AuthProvider with no authentication
type noAuth struct{}

// NewNoAuth creates a new no-auth provider
func NewNoAuth() AuthProvider {
	return &noAuth{}
}

// GetAuthHeaders implements AuthProvider.GetAuthHeaders
func (a *noAuth) GetAuthHeaders() map[string]string {
	return map[string]string{}
}

// GetAuthToken implements AuthProvider.GetAuthToken
func (a *noAuth) GetAuthToken() string {
	return ""
}
