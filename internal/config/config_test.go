package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"APP_ENV":                "dev",
		"APP_PORT":               "8080",
		"DB_USER":                "app",
		"DB_HOST":                "127.0.0.1",
		"DB_PORT":                "3306",
		"DB_NAME":                "interventions",
		"JWT_SECRET":             "s3cret",
		"ACCESS_TOKEN_TTL_MIN":   "15",
		"REFRESH_TOKEN_TTL_DAYS": "7",
		"BCRYPT_COST":            "10",
	} {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("DEFAULT_TAX_RATE_PERCENT", "")
	cfg := Load()
	if cfg.DefaultTaxRatePercent != 20 {
		t.Fatalf("tax rate = %v", cfg.DefaultTaxRatePercent)
	}
	if cfg.LogLevel != "info" || cfg.RequestTimeout != 5*time.Second || !cfg.AutoMigrate {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if !cfg.IsDev() {
		t.Fatal("APP_ENV=dev should be a dev environment")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("DEFAULT_TAX_RATE_PERCENT", "5.5")
	t.Setenv("ADMIN_EMAIL", " root@example.com ")
	t.Setenv("DB_AUTO_MIGRATE", "off")
	cfg := Load()
	if cfg.DefaultTaxRatePercent != 5.5 || cfg.AdminEmail != "root@example.com" || cfg.AutoMigrate || cfg.IsDev() {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	rl := LoadRateLimitConfig()
	if rl.Capacity != 5 || rl.RefillTokens != 1 || rl.RefillInterval != 2*time.Second {
		t.Fatalf("unexpected %+v", rl)
	}
	if rl.TTL != 10*time.Second {
		t.Fatalf("TTL should be raised to 5 refill intervals, got %s", rl.TTL)
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	c := LoadCacheConfig()
	if !c.Methods["GET"] || !c.Methods["HEAD"] || c.Methods["POST"] {
		t.Fatalf("methods = %v", c.Methods)
	}
	if c.KeyStrategy != "user_route" || c.TTL != time.Minute {
		t.Fatalf("unexpected %+v", c)
	}
}

func TestLoadRedisConfig(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	if got := LoadRedisConfig().Addr; got != "cache:6380" {
		t.Fatalf("addr = %s", got)
	}
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	if got := LoadRedisConfig().Addr; got != "redis:6379" {
		t.Fatalf("host/port should win, got %s", got)
	}
}

func TestLoadBlobAndQueueConfig(t *testing.T) {
	t.Setenv("BLOB_BACKEND", "S3")
	t.Setenv("S3_ENDPOINT", "http://minio:9000")
	t.Setenv("S3_REGION", "")
	t.Setenv("AWS_REGION", "")
	b := LoadBlobConfig()
	if b.Backend != BlobBackendS3 || b.Endpoint != "http://minio:9000" || b.Region != "us-east-1" {
		t.Fatalf("blob config %+v", b)
	}

	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://u:p@mq:5672/")
	t.Setenv("EVENTS_DIAL_TIMEOUT", "")
	q := LoadQueueConfig()
	if q.URL != "amqp://u:p@mq:5672/" || q.Queue != "intervention.events" || q.AuditLogDir != "logs" || q.DialTimeout != 2*time.Second {
		t.Fatalf("queue config %+v", q)
	}
}
