// Package secrets resolves configuration values that may live in GCP Secret
// Manager. An env var holding "projects/<p>/secrets/<s>[/versions/<v>]" is
// dereferenced; any other value is returned as-is.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"

	"github.com/yungbote/babycare-backend/internal/platform/gcp"
	"github.com/yungbote/babycare-backend/internal/platform/logger"
)

const resourcePrefix = "projects/"

// Accessor fetches the payload of a fully qualified secret version.
type Accessor interface {
	Access(ctx context.Context, name string) ([]byte, error)
}

type Reader struct {
	log    *logger.Logger
	lookup func(string) string

	once    sync.Once
	acc     Accessor
	initErr error
	newAcc  func(ctx context.Context) (Accessor, error)

	mu    sync.Mutex
	cache map[string]string
}

// NewReader reads the process environment and lazily dials Secret Manager on
// the first "projects/..." reference.
func NewReader(log *logger.Logger) *Reader {
	return &Reader{
		log:    log.With("service", "SecretReader"),
		lookup: os.Getenv,
		newAcc: dialSecretManager,
		cache:  map[string]string{},
	}
}

// NewReaderWith is NewReader with an injected environment and accessor.
func NewReaderWith(log *logger.Logger, lookup func(string) string, acc Accessor) *Reader {
	r := NewReader(log)
	if lookup != nil {
		r.lookup = lookup
	}
	if acc != nil {
		r.newAcc = func(context.Context) (Accessor, error) { return acc, nil }
	}
	return r
}

// Get returns the value of env var name, dereferencing Secret Manager
// references. An unset variable yields "" and no error.
func (r *Reader) Get(ctx context.Context, name string) (string, error) {
	r.mu.Lock()
	if v, ok := r.cache[name]; ok {
		r.mu.Unlock()
		return v, nil
	}
	r.mu.Unlock()

	raw := strings.TrimSpace(r.lookup(name))
	val := raw
	if strings.HasPrefix(raw, resourcePrefix) {
		acc, err := r.accessor(ctx)
		if err != nil {
			return "", fmt.Errorf("secret %s: %w", name, err)
		}
		data, err := acc.Access(ctx, versionName(raw))
		if err != nil {
			return "", fmt.Errorf("secret %s: access: %w", name, err)
		}
		val = strings.TrimSpace(string(data))
		r.log.Debug("Resolved secret from Secret Manager", "name", name)
	}

	r.mu.Lock()
	r.cache[name] = val
	r.mu.Unlock()
	return val, nil
}

// GetOr is Get with a fallback for optional secrets.
func (r *Reader) GetOr(ctx context.Context, name, def string) string {
	v, err := r.Get(ctx, name)
	if err != nil {
		r.log.Warn("Secret lookup failed; using default", "name", name, "error", err)
		return def
	}
	if v == "" {
		return def
	}
	return v
}

func (r *Reader) accessor(ctx context.Context) (Accessor, error) {
	r.once.Do(func() {
		r.acc, r.initErr = r.newAcc(ctx)
	})
	return r.acc, r.initErr
}

// Close releases the Secret Manager client if one was created.
func (r *Reader) Close() error {
	if c, ok := r.acc.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func versionName(ref string) string {
	if strings.Contains(ref, "/versions/") {
		return ref
	}
	return strings.TrimSuffix(ref, "/") + "/versions/latest"
}

type smAccessor struct {
	client *secretmanager.Client
}

func dialSecretManager(ctx context.Context) (Accessor, error) {
	client, err := secretmanager.NewClient(ctx, gcp.ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("secretmanager client: %w", err)
	}
	return &smAccessor{client: client}, nil
}

func (a *smAccessor) Access(ctx context.Context, name string) ([]byte, error) {
	resp, err := a.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, err
	}
	return resp.GetPayload().GetData(), nil
}

func (a *smAccessor) Close() error { return a.client.Close() }
