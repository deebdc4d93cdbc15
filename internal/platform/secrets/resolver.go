// Package secrets resolves secret:// configuration references against Google Secret Manager.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const metricNamespace = "bagsoflaundry.com/web/internal/platform/secrets"

var secretManagerClientFactory = func(ctx context.Context, opts ...option.ClientOption) (secretManagerClient, error) {
	return secretmanager.NewClient(ctx, opts...)
}

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Resolver resolves secret references, caching values for the life of the process.
// The Secret Manager client is created on first use so deployments without secret
// references never dial Google APIs.
type Resolver struct {
	logger     *zap.Logger
	projectID  string
	clientOpts []option.ClientOption

	clientOnce sync.Once
	client     secretManagerClient
	clientErr  error
	ownsClient bool

	mu    sync.RWMutex
	cache map[string]string

	cacheHits        metric.Int64Counter
	cacheHitsEnabled bool
}

// Option customises Resolver construction.
type Option func(*Resolver)

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDefaultProject sets the project used by references without a project query parameter.
func WithDefaultProject(projectID string) Option {
	return func(r *Resolver) {
		r.projectID = strings.TrimSpace(projectID)
	}
}

// WithClientOptions forwards Cloud client options when constructing the Secret Manager client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(r *Resolver) {
		r.clientOpts = append(r.clientOpts, opts...)
	}
}

func withClient(client secretManagerClient) Option {
	return func(r *Resolver) {
		r.client = client
		r.clientOnce.Do(func() {})
	}
}

// NewResolver builds a Resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		logger: zap.NewNop(),
		cache:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}

	meter := otel.GetMeterProvider().Meter(metricNamespace)
	hits, err := meter.Int64Counter(
		"secrets.resolve.cache_hits",
		metric.WithDescription("Count of cache hits when resolving secrets"),
	)
	if err != nil {
		r.logger.Warn("secrets: unable to register cache hit metric", zap.Error(err))
	}
	r.cacheHits = hits
	r.cacheHitsEnabled = err == nil
	return r
}

// ResolveSecret returns the payload for ref, e.g. "secret://session-key?version=3&project=bol-prod".
func (r *Resolver) ResolveSecret(ctx context.Context, ref string) (string, error) {
	parsed, err := parseReference(ref)
	if err != nil {
		return "", err
	}

	r.mu.RLock()
	value, ok := r.cache[parsed.resource(r.projectID)]
	r.mu.RUnlock()
	if ok {
		if r.cacheHitsEnabled {
			r.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("secret", parsed.Secret)))
		}
		return value, nil
	}

	project := parsed.Project
	if project == "" {
		project = r.projectID
	}
	if project == "" {
		return "", fmt.Errorf("secrets: no project configured for %s", parsed.Secret)
	}

	client, err := r.getClient(ctx)
	if err != nil {
		return "", err
	}
	name := parsed.resource(r.projectID)
	resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("secrets: access %s: %w", parsed.Secret, err)
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("secrets: empty payload for %s", parsed.Secret)
	}
	value = string(resp.GetPayload().GetData())

	r.mu.Lock()
	r.cache[name] = value
	r.mu.Unlock()

	r.logger.Debug("secrets: resolved", zap.String("secret", parsed.Secret), zap.String("version", parsed.Version))
	return value, nil
}

func (r *Resolver) getClient(ctx context.Context) (secretManagerClient, error) {
	r.clientOnce.Do(func() {
		client, err := secretManagerClientFactory(ctx, r.clientOpts...)
		if err != nil {
			r.clientErr = fmt.Errorf("secrets: create secret manager client: %w", err)
			return
		}
		r.client = client
		r.ownsClient = true
	})
	if r.clientErr != nil {
		return nil, r.clientErr
	}
	if r.client == nil {
		return nil, errors.New("secrets: secret manager client not configured")
	}
	return r.client, nil
}

// Close releases the Secret Manager client when the resolver created it.
func (r *Resolver) Close() error {
	if r.ownsClient && r.client != nil {
		return r.client.Close()
	}
	return nil
}

type reference struct {
	Secret  string
	Version string
	Project string
}

func (ref reference) resource(defaultProject string) string {
	project := ref.Project
	if project == "" {
		project = defaultProject
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", project, ref.Secret, ref.Version)
}

func parseReference(ref string) (reference, error) {
	if strings.TrimSpace(ref) == "" {
		return reference{}, errors.New("secrets: empty reference")
	}
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return reference{}, fmt.Errorf("secrets: invalid reference %q: %w", ref, err)
	}
	if u.Scheme != "secret" {
		return reference{}, fmt.Errorf("secrets: unsupported scheme %q", u.Scheme)
	}
	secret := strings.Trim(u.Host+u.Path, "/")
	if secret == "" {
		return reference{}, fmt.Errorf("secrets: missing secret name in %q", ref)
	}
	q := u.Query()
	version := strings.TrimSpace(q.Get("version"))
	if version == "" {
		version = "latest"
	}
	return reference{
		Secret:  secret,
		Version: version,
		Project: strings.TrimSpace(q.Get("project")),
	}, nil
}
