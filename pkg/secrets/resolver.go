package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/richxcame/schoolrun/pkg/config"
	"github.com/richxcame/schoolrun/pkg/logger"
	"go.uber.org/zap"
)

// provider fetches a whole secret payload
type provider interface {
	Fetch(ctx context.Context, ref Reference) (map[string]string, error)
	Close() error
}

type cachedPayload struct {
	data      map[string]string
	expiresAt time.Time
}

// Resolver resolves references against lazily created providers and caches
// payloads for a TTL.
type Resolver struct {
	cfg config.SecretsConfig
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	providers map[ProviderType]provider
	cache     map[string]cachedPayload
}

// NewResolver creates a resolver
func NewResolver(cfg config.SecretsConfig) *Resolver {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Resolver{
		cfg:       cfg,
		ttl:       ttl,
		now:       time.Now,
		providers: make(map[ProviderType]provider),
		cache:     make(map[string]cachedPayload),
	}
}

// Resolve returns the value a reference points at. Without a #key the
// payload must hold exactly one entry.
func (r *Resolver) Resolve(ctx context.Context, raw string) (string, error) {
	ref, err := ParseReference(raw, ProviderFile)
	if err != nil {
		return "", fmt.Errorf("%w: %q", err, raw)
	}

	data, err := r.payload(ctx, ref)
	if err != nil {
		return "", err
	}

	if ref.Key != "" {
		v, ok := data[ref.Key]
		if !ok || v == "" {
			return "", fmt.Errorf("%w: %s", ErrKeyNotFound, ref.Key)
		}
		return v, nil
	}
	if len(data) == 1 {
		for _, v := range data {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: reference %q needs a #key", ErrKeyNotFound, raw)
}

// ApplyTo replaces the database password and JWT secret with the values of
// their configured references.
func (r *Resolver) ApplyTo(ctx context.Context, cfg *config.Config) error {
	if ref := cfg.Secrets.DBPasswordRef; ref != "" {
		v, err := r.Resolve(ctx, ref)
		if err != nil {
			return fmt.Errorf("resolve DB_PASSWORD_REF: %w", err)
		}
		cfg.Database.Password = v
		logger.Info("database password loaded from secret store")
	}
	if ref := cfg.Secrets.JWTSecretRef; ref != "" {
		v, err := r.Resolve(ctx, ref)
		if err != nil {
			return fmt.Errorf("resolve JWT_SECRET_REF: %w", err)
		}
		cfg.JWT.Secret = v
		logger.Info("jwt secret loaded from secret store")
	}
	return nil
}

// Close releases provider clients
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, p := range r.providers {
		if err := p.Close(); err != nil {
			logger.Warn("failed to close secret provider", zap.String("provider", string(name)), zap.Error(err))
		}
	}
	return nil
}

func (r *Resolver) payload(ctx context.Context, ref Reference) (map[string]string, error) {
	key := ref.cacheKey()

	r.mu.Lock()
	if entry, ok := r.cache[key]; ok && r.now().Before(entry.expiresAt) {
		r.mu.Unlock()
		return entry.data, nil
	}
	p, err := r.providerFor(ctx, ref.Provider)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	data, err := p.Fetch(ctx, ref)
	if err != nil {
		logger.Warn("secret fetch failed",
			zap.String("provider", string(ref.Provider)),
			zap.String("path", ref.Path),
			zap.Error(err),
		)
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = cachedPayload{data: data, expiresAt: r.now().Add(r.ttl)}
	r.mu.Unlock()
	return data, nil
}

// providerFor must be called with r.mu held
func (r *Resolver) providerFor(ctx context.Context, t ProviderType) (provider, error) {
	if p, ok := r.providers[t]; ok {
		return p, nil
	}

	var (
		p   provider
		err error
	)
	switch t {
	case ProviderVault:
		p, err = newVaultProvider(r.cfg.VaultAddress, r.cfg.VaultToken)
	case ProviderAWS:
		p, err = newAWSProvider(ctx, r.cfg.AWSRegion, r.cfg.AWSAccessKeyID, r.cfg.AWSSecretAccessKey)
	case ProviderGCP:
		p, err = newGCPProvider(ctx, r.cfg.GCPProjectID, r.cfg.GCPCredsFile)
	case ProviderFile:
		p, err = newFileProvider(r.cfg.FileBasePath)
	default:
		err = fmt.Errorf("secrets: unsupported provider %q", t)
	}
	if err != nil {
		return nil, err
	}
	r.providers[t] = p
	return p, nil
}
