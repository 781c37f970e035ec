package filestore

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// DefaultBucket is where LOB content goes when no bucket is configured.
const DefaultBucket = "sqlconform-lobs"

// Config holds all settings needed to connect to a file storage backend.
type Config struct {
	Provider Provider `yaml:"provider"`

	// Endpoint is the host:port of the storage server, e.g. "localhost:9000".
	// An empty endpoint disables the object store.
	Endpoint string `yaml:"endpoint"`

	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`

	// Region is used by region-aware backends. Leave empty for MinIO.
	Region string `yaml:"region"`

	// Bucket receives persisted LOB content.
	Bucket string `yaml:"bucket"`
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Bucket:    DefaultBucket,
	}
}

// Enabled reports whether an object store endpoint is configured.
func (c *Config) Enabled() bool {
	return c != nil && c.Endpoint != ""
}
