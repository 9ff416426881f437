// Package apiclient is the terminal's HTTP client for the Venta Fácil API.
// Every response is the apierror.Envelope; non-success bodies become typed
// *apierror.Error values.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"ventafacil/internal/apierror"
	"ventafacil/internal/infra"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout = 15 * time.Second
	retryDelay     = 300 * time.Millisecond
)

// TokenSource supplies the bearer token of the current session.
type TokenSource interface {
	Token() string
}

// Client talks to the REST API. Create with New and call Bind once the
// session manager exists.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *infra.CircuitBreaker

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *infra.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = cb }
}

// New returns a client for baseURL. A zero timeout uses 15s.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	if c.breaker == nil {
		c.breaker = infra.NewCircuitBreaker(infra.CircuitBreakerConfig{
			Name:      "api",
			IsFailure: isServerFault,
		})
	}
	return c
}

// Bind attaches the token source and the hook run on any 401 outside login.
func (c *Client) Bind(tokens TokenSource, onUnauthorized func()) {
	c.mu.Lock()
	c.tokens = tokens
	c.onUnauthorized = onUnauthorized
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) unauthorized() {
	c.mu.RLock()
	hook := c.onUnauthorized
	c.mu.RUnlock()
	if hook != nil {
		hook()
	}
}

// request describes one call.
type request struct {
	op     string
	method string
	path   string
	body   any
	// token overrides the bound token source when non-empty.
	token string
	// anonymous calls send no Authorization header and a 401 is a
	// credential rejection, not an expired session.
	anonymous bool
}

// call performs r and decodes the envelope data into *T. A success envelope
// with null data returns nil, nil.
func call[T any](ctx context.Context, c *Client, r request) (*T, error) {
	var out *T
	attempts := 1
	if r.method == http.MethodGet {
		attempts = 2
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			log.Debug().Str("op", r.op).Err(err).Msg("apiclient: retrying read")
			select {
			case <-ctx.Done():
				return nil, apierror.E(apierror.Backend, r.op, "Error al conectar con el servidor", ctx.Err())
			case <-time.After(retryDelay):
			}
		}
		err = c.breaker.Execute(ctx, func(ctx context.Context) error {
			var e error
			out, e = do[T](ctx, c, r)
			return e
		})
		if errors.Is(err, infra.ErrCircuitOpen) {
			return nil, apierror.E(apierror.Backend, r.op, "Servidor no disponible. Intenta en unos segundos.", err)
		}
		if err == nil || !isServerFault(err) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func do[T any](ctx context.Context, c *Client, r request) (*T, error) {
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, apierror.E(apierror.Validation, r.op, "Datos inválidos", fmt.Errorf("marshal: %w", err))
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, apierror.E(apierror.Backend, r.op, "Error al conectar con el servidor", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !r.anonymous {
		tok := r.token
		if tok == "" {
			tok = c.token()
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierror.E(apierror.Backend, r.op, "Error al conectar con el servidor", err)
	}
	defer resp.Body.Close()

	var env apierror.Envelope[T]
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if decodeErr != nil {
			return nil, apierror.E(apierror.Backend, r.op, "Respuesta inválida del servidor", decodeErr)
		}
		if !env.Success {
			return nil, statusErr(r, resp.StatusCode, env.Reason())
		}
		return env.Data, nil
	}

	reason := ""
	if decodeErr == nil {
		reason = env.Reason()
	}
	if resp.StatusCode == http.StatusUnauthorized && !r.anonymous {
		log.Warn().Str("op", r.op).Msg("apiclient: session rejected by server")
		c.unauthorized()
	}
	return nil, statusErr(r, resp.StatusCode, reason)
}

// statusErr maps an HTTP status onto the client taxonomy.
func statusErr(r request, status int, reason string) error {
	pick := func(fallback string) string {
		if reason != "" {
			return reason
		}
		return fallback
	}
	var e *apierror.Error
	switch {
	case status == http.StatusUnauthorized && r.anonymous:
		e = apierror.E(apierror.Authentication, r.op, pick("Credenciales inválidas"), nil)
	case status == http.StatusUnauthorized:
		e = apierror.E(apierror.Authentication, r.op, pick("Tu sesión expiró. Inicia sesión de nuevo."), nil)
	case status == http.StatusForbidden:
		e = apierror.E(apierror.Forbidden, r.op, pick("Permisos insuficientes"), nil)
	case status == http.StatusConflict:
		e = apierror.E(apierror.StateConflict, r.op, pick("Conflicto de estado"), nil)
	case status >= 500:
		e = apierror.E(apierror.Backend, r.op, pick("Error del servidor"), nil)
	default:
		e = apierror.E(apierror.Backend, r.op, pick("Solicitud rechazada"), nil)
	}
	e.Status = status
	return e
}

// isServerFault reports errors that say the backend is unhealthy: transport
// failures and 5xx. Rejections and cancellations do not count.
func isServerFault(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var ae *apierror.Error
	if !errors.As(err, &ae) {
		return true
	}
	if ae.Status >= 500 {
		return true
	}
	return ae.Status == 0 && ae.Kind == apierror.Backend && ae.Err != nil
}
