package billing

import "time"

// CatalogConfig selects and configures the plan catalog source.
// The CMS is used when CMS_BASE_URL is set, the YAML file otherwise.
type CatalogConfig struct {
	CMSBaseURL    string        `env:"CMS_BASE_URL"`
	CMSAPIKey     string        `env:"CMS_API_KEY"`
	CMSCollection string        `env:"CMS_PLANS_COLLECTION" envDefault:"plans"`
	CMSTimeout    time.Duration `env:"CMS_TIMEOUT" envDefault:"5s"`

	File string `env:"CATALOG_FILE" envDefault:"plans.yaml"`

	CacheEnabled  bool          `env:"CATALOG_CACHE_ENABLED" envDefault:"false"`
	CacheTTL      time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`
	LocalCacheTTL time.Duration `env:"CATALOG_LOCAL_CACHE_TTL" envDefault:"30s"`
	LocalCacheMax int           `env:"CATALOG_LOCAL_CACHE_SIZE" envDefault:"256"`
}

// UsesCMS reports whether plans are read from the CMS.
func (c CatalogConfig) UsesCMS() bool {
	return c.CMSBaseURL != ""
}

// ArchiveConfig configures the raw event archive. Archiving is off when
// the bucket is empty.
type ArchiveConfig struct {
	Bucket          string `env:"ARCHIVE_S3_BUCKET"`
	Region          string `env:"ARCHIVE_S3_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"ARCHIVE_S3_ENDPOINT"`
	AccessKeyID     string `env:"ARCHIVE_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"ARCHIVE_S3_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"ARCHIVE_S3_USE_PATH_STYLE" envDefault:"false"`
	Prefix          string `env:"ARCHIVE_S3_PREFIX" envDefault:"stripe"`
}

// Enabled reports whether archiving is configured.
func (c ArchiveConfig) Enabled() bool {
	return c.Bucket != ""
}

// WebhookConfig configures the webhook endpoint.
type WebhookConfig struct {
	Path         string `env:"WEBHOOK_PATH" envDefault:"/api/payment/webhook"`
	MaxBodyBytes int64  `env:"WEBHOOK_MAX_BODY_BYTES" envDefault:"1048576"`
}
