package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/ruteri/signet-registry/interfaces"
)

// StoreFactory creates registry stores and snapshot backends from location URIs.
type StoreFactory struct {
	log *slog.Logger
}

// NewStoreFactory creates a new factory instance.
func NewStoreFactory(logger *slog.Logger) *StoreFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreFactory{log: logger}
}

// StoreFor creates a registry store from one or more location URIs.
//
// A single "memory://" URI yields a MemoryStore. Any other set of URIs yields a
// SnapshotStore persisting to every listed backend, loading the initial state from
// the one holding the newest snapshot. Every listed backend must be reachable at startup.
func (sf *StoreFactory) StoreFor(ctx context.Context, locationURIs ...string) (interfaces.Store, error) {
	if len(locationURIs) == 0 {
		return nil, fmt.Errorf("%w: no location given", interfaces.ErrInvalidLocationURI)
	}

	if len(locationURIs) == 1 && isMemoryURI(locationURIs[0]) {
		return NewMemoryStore(), nil
	}

	backends := make([]interfaces.SnapshotBackend, 0, len(locationURIs))
	for _, uri := range locationURIs {
		if isMemoryURI(uri) {
			return nil, fmt.Errorf("%w: memory:// cannot be combined with other locations", interfaces.ErrInvalidLocationURI)
		}
		backend, err := sf.BackendFor(uri)
		if err != nil {
			return nil, err
		}
		backends = append(backends, backend)
	}

	if len(backends) == 1 {
		return NewSnapshotStore(ctx, backends[0], sf.log)
	}
	return NewSnapshotStore(ctx, NewMultiSnapshotBackend(backends, sf.log), sf.log)
}

// BackendFor creates a snapshot backend from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2 secret
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (sf *StoreFactory) BackendFor(locationURI string) (interfaces.SnapshotBackend, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "s3":
		return sf.createS3Backend(u)
	case "vault":
		return sf.createVaultBackend(u)
	case "file":
		return sf.createFileBackend(u)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme %q", interfaces.ErrInvalidLocationURI, u.Scheme)
	}
}

func isMemoryURI(uri string) bool {
	return strings.EqualFold(strings.TrimSpace(uri), "memory://")
}

// createS3Backend creates an S3 or S3-compatible snapshot backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/path/?region=us-west-2&endpoint=custom.s3.com
func (sf *StoreFactory) createS3Backend(u *url.URL) (interfaces.SnapshotBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("bucket", u.Host))

	bucketName := u.Host
	if bucketName == "" {
		return nil, fmt.Errorf("%w: missing bucket in S3 URI", interfaces.ErrInvalidLocationURI)
	}

	path := strings.TrimPrefix(u.Path, "/")

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := query.Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
		sf.log.Debug("Using embedded S3 credentials")
	}

	return NewS3Backend(bucketName, path, region, endpoint, accessKey, secretKey, sf.log)
}

// createVaultBackend creates a Vault snapshot backend.
// URI format: vault://host:port/mount/path/to/secret?tls=true
// The token is taken from VAULT_TOKEN.
func (sf *StoreFactory) createVaultBackend(u *url.URL) (interfaces.SnapshotBackend, error) {
	sf.log.Debug("Creating Vault backend", slog.String("host", u.Host))

	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in Vault URI", interfaces.ErrInvalidLocationURI)
	}

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: expected vault://host/mount/path", interfaces.ErrInvalidLocationURI)
	}

	scheme := "http"
	if u.Query().Get("tls") == "true" {
		scheme = "https"
	}
	address := fmt.Sprintf("%s://%s", scheme, u.Host)

	return NewVaultBackend(address, parts[0], parts[1], os.Getenv("VAULT_TOKEN"), nil, sf.log)
}

// createFileBackend creates a file system snapshot backend.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *StoreFactory) createFileBackend(u *url.URL) (interfaces.SnapshotBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI %s", interfaces.ErrInvalidLocationURI, u.String())
	}

	return NewFileBackend(path, sf.log)
}
