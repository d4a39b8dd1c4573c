package config

import (
	"fmt"
	"os"
)

// R2Config points at the S3-compatible bucket that holds before/after
// repair photos. Cloudflare R2 in production; any S3 endpoint works.
type R2Config struct {
	AccountID string `mapstructure:"account_id"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	// PublicURL is the base under which uploaded objects are served
	PublicURL string `mapstructure:"public_url"`
}

// Enabled reports whether photo uploads can be stored
func (r R2Config) Enabled() bool {
	return r.Bucket != "" && r.AccessKey != "" && r.SecretKey != "" && r.ResolvedEndpoint() != ""
}

// ResolvedEndpoint returns Endpoint, or the account's R2 endpoint
func (r R2Config) ResolvedEndpoint() string {
	if r.Endpoint != "" {
		return r.Endpoint
	}
	if r.AccountID != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r.AccountID)
	}
	return ""
}

func (r *R2Config) applyEnv() {
	if v := os.Getenv("R2_ACCOUNT_ID"); v != "" {
		r.AccountID = v
	}
	if v := os.Getenv("R2_ENDPOINT"); v != "" {
		r.Endpoint = v
	}
	if v := os.Getenv("R2_ACCESS_KEY"); v != "" {
		r.AccessKey = v
	}
	if v := os.Getenv("R2_SECRET_KEY"); v != "" {
		r.SecretKey = v
	}
	if v := os.Getenv("R2_BUCKET"); v != "" {
		r.Bucket = v
	}
	if v := os.Getenv("R2_PUBLIC_URL"); v != "" {
		r.PublicURL = v
	}
}
