// Package catalog lists the xml, txt and json files of a Google Drive,
// annotates each with its full folder path, and reads or replaces their
// content. Every operation runs on a Client built from one set of
// credentials for one logical operation.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/etnz/drivefiles/internal/metrics"
)

const (
	// DefaultPageSize is the listing page size.
	DefaultPageSize = 100
	// DefaultMaxDepth bounds the parent chain climbed for one file.
	DefaultMaxDepth = 64
)

// Client is an authenticated handle on the Drive API, bound to one token
// and to Scope. It is not cached by this package; build one per operation.
type Client struct {
	// Service is the Drive API service. It is safe for concurrent use.
	Service *drive.Service

	identity string
	logger   *zap.Logger
	metrics  *metrics.Metrics
	pageSize int64
	allPages bool
	maxDepth int
}

type clientOptions struct {
	oauth       *oauth2.Config
	httpClient  *http.Client
	timeout     time.Duration
	logger      *zap.Logger
	metrics     *metrics.Metrics
	serviceOpts []option.ClientOption
	pageSize    int64
	allPages    bool
	maxDepth    int
}

// Option configures NewClient.
type Option func(*clientOptions)

// WithOAuth lets the client refresh an expired token with the token's
// refresh token, using cfg's client registration.
func WithOAuth(cfg *oauth2.Config) Option {
	return func(o *clientOptions) { o.oauth = cfg }
}

// WithHTTPClient sets the base HTTP client the authenticated transport wraps.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithTimeout sets a per-request timeout on the authenticated HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithMetrics records remote calls and memo lookups on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// WithServiceOptions passes extra options to drive.NewService, such as an
// endpoint override.
func WithServiceOptions(opts ...option.ClientOption) Option {
	return func(o *clientOptions) { o.serviceOpts = append(o.serviceOpts, opts...) }
}

// WithPageSize sets the listing page size.
func WithPageSize(n int) Option {
	return func(o *clientOptions) { o.pageSize = int64(n) }
}

// WithAllPages makes ListFiles follow continuation tokens instead of
// stopping after the first page.
func WithAllPages(all bool) Option {
	return func(o *clientOptions) { o.allPages = all }
}

// WithMaxDepth bounds the number of folders climbed for one file.
func WithMaxDepth(n int) Option {
	return func(o *clientOptions) { o.maxDepth = n }
}

// NewClient binds creds and Scope into a new Client. identityKey is an
// opaque correlation label that only shows up in logs. No network call is
// made.
func NewClient(ctx context.Context, creds *oauth2.Token, identityKey string, opts ...Option) (*Client, error) {
	if creds == nil || strings.TrimSpace(creds.AccessToken) == "" {
		return nil, ErrMissingAccessToken
	}
	if identityKey == "" {
		return nil, ErrMissingIdentity
	}

	o := clientOptions{
		logger:   zap.NewNop(),
		pageSize: DefaultPageSize,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}

	var src oauth2.TokenSource
	if o.oauth != nil {
		cfg := *o.oauth
		cfg.Scopes = Scopes()
		src = cfg.TokenSource(ctx, creds)
	} else {
		src = oauth2.StaticTokenSource(creds)
	}

	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = o.timeout

	serviceOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, o.serviceOpts...)
	service, err := drive.NewService(ctx, serviceOpts...)
	if err != nil {
		return nil, fmt.Errorf("catalog: could not create drive service: %w", err)
	}

	logger := o.logger.With(zap.String("identity", identityKey))
	logger.Debug("drive client created", zap.Strings("scopes", Scopes()))

	return &Client{
		Service:  service,
		identity: identityKey,
		logger:   logger,
		metrics:  o.metrics,
		pageSize: o.pageSize,
		allPages: o.allPages,
		maxDepth: o.maxDepth,
	}, nil
}

// Identity returns the correlation label the client was created with.
func (c *Client) Identity() string {
	return c.identity
}
