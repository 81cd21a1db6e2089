package config

import "strings"

// Blob backends.
const (
	BlobBackendMySQL = "mysql"
	BlobBackendS3    = "s3"
)

// BlobConfig selects where signature images are stored.
type BlobConfig struct {
	Backend   string
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

func LoadBlobConfig() BlobConfig {
	return BlobConfig{
		Backend:   strings.ToLower(envStr("BLOB_BACKEND", BlobBackendMySQL)),
		Bucket:    envStr("S3_BUCKET", "intervention-signatures"),
		Region:    envStr("S3_REGION", envStr("AWS_REGION", "us-east-1")),
		Endpoint:  envStr("S3_ENDPOINT", ""),
		AccessKey: envStr("AWS_ACCESS_KEY_ID", ""),
		SecretKey: envStr("AWS_SECRET_ACCESS_KEY", ""),
	}
}
