// Package config loads runtime configuration from defaults, a .env file, the process
// environment, and Secret Manager references.
package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile            = ".env"
	defaultPort               = "8080"
	defaultReadTimeout        = 15 * time.Second
	defaultWriteTimeout       = 15 * time.Second
	defaultIdleTimeout        = 60 * time.Second
	defaultEnvironment        = "local"
	defaultSessionCookie      = "__bol_session"
	defaultSessionTTL         = 7 * 24 * time.Hour
	defaultFirestoreSessions  = "wizard_sessions"
	defaultAuthRatePerMinute  = 10
	defaultIntakeHTTPTimeout  = 10 * time.Second
	productionEnvironmentName = "prod"
)

// Session backends.
const (
	BackendCookie    = "cookie"
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendFirestore = "firestore"
)

// Intake modes.
const (
	IntakeLog    = "log"
	IntakePubSub = "pubsub"
	IntakeHTTP   = "http"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Env       string
	Server    ServerConfig
	Session   SessionConfig
	Redis     RedisConfig
	Firestore FirestoreConfig
	Intake    IntakeConfig
	Security  SecurityConfig
	Secrets   SecretsConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SessionConfig controls the wizard session cookie and its storage.
type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Backend    string
}

// RedisConfig addresses the Redis session backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// FirestoreConfig addresses the Firestore session backend.
type FirestoreConfig struct {
	ProjectID  string
	Collection string
}

// IntakeConfig selects where completed drafts are handed off.
type IntakeConfig struct {
	Mode        string
	ProjectID   string
	Topic       string
	APIURL      string
	HTTPTimeout time.Duration
}

// SecurityConfig groups request-protection settings.
type SecurityConfig struct {
	CSRF              bool
	AuthRatePerMinute int
}

// SecretsConfig configures secret:// resolution.
type SecretsConfig struct {
	ProjectID string
}

// Production reports whether the deployment runs in production.
func (c Config) Production() bool {
	return c.Env == productionEnvironmentName
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load assembles the configuration: defaults < .env < OS environment < explicit map.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	// Cloud Run injects PORT; the prefixed key wins when both are set.
	port := stringWithDefault(lookup, "PORT", defaultPort)

	cfg := Config{
		Env: strings.ToLower(stringWithDefault(lookup, "LAUNDRY_WEB_ENV", defaultEnvironment)),
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "LAUNDRY_WEB_PORT", port),
			ReadTimeout:  durationWithDefault(lookup, "LAUNDRY_WEB_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "LAUNDRY_WEB_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "LAUNDRY_WEB_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Session: SessionConfig{
			Secret:     stringWithDefault(lookup, "LAUNDRY_WEB_SESSION_SECRET", ""),
			CookieName: stringWithDefault(lookup, "LAUNDRY_WEB_SESSION_COOKIE", defaultSessionCookie),
			TTL:        durationWithDefault(lookup, "LAUNDRY_WEB_SESSION_TTL", defaultSessionTTL),
			Backend:    strings.ToLower(stringWithDefault(lookup, "LAUNDRY_WEB_SESSION_BACKEND", BackendCookie)),
		},
		Redis: RedisConfig{
			Addr:     stringWithDefault(lookup, "LAUNDRY_WEB_REDIS_ADDR", ""),
			Password: stringWithDefault(lookup, "LAUNDRY_WEB_REDIS_PASSWORD", ""),
			DB:       intWithDefault(lookup, "LAUNDRY_WEB_REDIS_DB", 0),
		},
		Firestore: FirestoreConfig{
			ProjectID:  stringWithDefault(lookup, "LAUNDRY_WEB_FIRESTORE_PROJECT_ID", ""),
			Collection: stringWithDefault(lookup, "LAUNDRY_WEB_FIRESTORE_COLLECTION", defaultFirestoreSessions),
		},
		Intake: IntakeConfig{
			Mode:        strings.ToLower(stringWithDefault(lookup, "LAUNDRY_WEB_INTAKE_MODE", IntakeLog)),
			ProjectID:   stringWithDefault(lookup, "LAUNDRY_WEB_INTAKE_PROJECT_ID", ""),
			Topic:       stringWithDefault(lookup, "LAUNDRY_WEB_INTAKE_TOPIC", ""),
			APIURL:      stringWithDefault(lookup, "LAUNDRY_WEB_INTAKE_API_URL", ""),
			HTTPTimeout: durationWithDefault(lookup, "LAUNDRY_WEB_INTAKE_HTTP_TIMEOUT", defaultIntakeHTTPTimeout),
		},
		Security: SecurityConfig{
			CSRF:              boolWithDefault(lookup, "LAUNDRY_WEB_CSRF", true),
			AuthRatePerMinute: intWithDefault(lookup, "LAUNDRY_WEB_AUTH_RATE_PER_MIN", defaultAuthRatePerMinute),
		},
		Secrets: SecretsConfig{
			ProjectID: stringWithDefault(lookup, "LAUNDRY_WEB_SECRETS_PROJECT_ID", ""),
		},
	}

	if cfg.Intake.ProjectID == "" {
		cfg.Intake.ProjectID = cfg.Firestore.ProjectID
	}

	secretFields := []*string{
		&cfg.Session.Secret,
		&cfg.Redis.Password,
	}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

// EnvironmentValues returns the effective key/value environment after applying the same
// precedence as Load. Callers use it to build dependencies, such as the secret resolver,
// before invoking Load.
func EnvironmentValues(opts ...Option) (map[string]string, error) {
	options := loaderOptions{envFile: defaultEnvFile, useSystemEnv: true}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	for k, v := range dotEnvValues {
		values[k] = v
	}
	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || strings.TrimSpace(key) == "" {
				continue
			}
			values[strings.TrimSpace(key)] = value
		}
	}
	for k, v := range options.envMap {
		values[k] = v
	}
	return values, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Session.TTL <= 0 {
		missing = append(missing, "Session.TTL")
	}
	if cfg.Production() && cfg.Session.Secret == "" {
		missing = append(missing, "Session.Secret")
	}
	switch cfg.Session.Backend {
	case BackendCookie, BackendMemory:
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			missing = append(missing, "Redis.Addr")
		}
	case BackendFirestore:
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
	default:
		missing = append(missing, "Session.Backend")
	}
	switch cfg.Intake.Mode {
	case IntakeLog:
	case IntakePubSub:
		if cfg.Intake.ProjectID == "" {
			missing = append(missing, "Intake.ProjectID")
		}
		if cfg.Intake.Topic == "" {
			missing = append(missing, "Intake.Topic")
		}
	case IntakeHTTP:
		if cfg.Intake.APIURL == "" {
			missing = append(missing, "Intake.APIURL")
		}
	default:
		missing = append(missing, "Intake.Mode")
	}
	if cfg.Security.AuthRatePerMinute <= 0 {
		missing = append(missing, "Security.AuthRatePerMinute")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
