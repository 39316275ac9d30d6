package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if c.Paths.Bind == "" {
		return errors.New("paths.bind must be set")
	}
	return nil
}

func (c *Config) validateRemote() error {
	for name, value := range map[string]string{
		"remote.api_base_url":   c.Remote.APIBaseURL,
		"remote.image_base_url": c.Remote.ImageBaseURL,
	} {
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, value)
		}
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.MaxSizeMB < 10 {
		return fmt.Errorf("cache.max_size_mb must be at least 10, got %d", c.Cache.MaxSizeMB)
	}
	if c.Cache.TTLMinutes > 24*60 {
		return fmt.Errorf("cache.ttl_minutes must not exceed one day, got %d", c.Cache.TTLMinutes)
	}
	return nil
}
