package storage

import "fmt"

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// Enabled reports whether an endpoint is configured. Exports are disabled otherwise.
func (c *MinIOConfig) Enabled() bool {
	return c != nil && c.Endpoint != ""
}

func (c *MinIOConfig) validate() error {
	if !c.Enabled() {
		return fmt.Errorf("minio config missing")
	}
	if c.Bucket == "" {
		return fmt.Errorf("minio bucket missing")
	}
	return nil
}
