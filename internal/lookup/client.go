// Package lookup resolves postal codes against the ViaCEP web service.
package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thomhuang/CepLookup/internal/address"
	"github.com/thomhuang/CepLookup/internal/postalcode"
)

// DefaultBaseURL is the public ViaCEP host.
const DefaultBaseURL = "https://viacep.com.br"

const tracerName = "github.com/thomhuang/CepLookup/internal/lookup"

var (
	// ErrNotFound means the service answered but does not know the code.
	ErrNotFound = errors.New("postal code not found")
	// ErrNetwork covers transport failures and unusable responses.
	ErrNetwork = errors.New("lookup request failed")
)

// Client performs a single lookup attempt per call. There are no retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logrus.FieldLogger
	tracer     trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. Zero keeps the default of no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New returns a Client for baseURL, falling back to DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		log:        logrus.StandardLogger(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the request address for a canonical code.
func (c *Client) URL(code string) string {
	return fmt.Sprintf("%s/ws/%s/json/", c.baseURL, code)
}

// Lookup resolves a canonical 8-digit code.
func (c *Client) Lookup(ctx context.Context, code string) (rec address.Record, err error) {
	ctx, span := c.tracer.Start(ctx, "lookup.postal_code",
		trace.WithAttributes(attribute.String("postal_code", code)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if canonical, verr := postalcode.Validate(code); verr != nil || canonical != code {
		return address.Record{}, postalcode.ErrInvalidFormat
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(code), nil)
	if err != nil {
		return address.Record{}, fmt.Errorf("%w: build request: %w", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("postal_code", code).Warn("could not reach lookup service")
		return address.Record{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.WithField("postal_code", code).WithField("status", resp.StatusCode).Warn("unexpected lookup status")
		return address.Record{}, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.WithError(err).WithField("postal_code", code).Warn("could not read lookup response body")
		return address.Record{}, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}

	return decode(body)
}

// payload is the ViaCEP response. erro arrives as true or "true" depending on
// the service version.
type payload struct {
	address.Record
	Erro json.RawMessage `json:"erro,omitempty"`
}

func decode(body []byte) (address.Record, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return address.Record{}, fmt.Errorf("%w: decode body: %w", ErrNetwork, err)
	}
	if notFound(p.Erro) {
		return address.Record{}, ErrNotFound
	}
	if strings.TrimSpace(p.PostalCode) == "" {
		return address.Record{}, fmt.Errorf("%w: response has no postal code", ErrNetwork)
	}
	return p.Record, nil
}

func notFound(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return flag
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.EqualFold(strings.TrimSpace(text), "true")
	}
	return false
}
