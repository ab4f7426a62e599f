package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Keys lists the settings addressable through GetValue and SetValue, in display order.
var Keys = []string{
	"install_root",
	"catalog.url",
	"catalog.format",
	"catalog.required",
	"catalog.prune",
	"registry.url",
	"http_timeout",
	"max_redirects",
	"max_retries",
	"integrity_retries",
	"concurrency",
	"log_level",
	"log_file",
}

// SetValue sets a configuration value by key. Lists are comma separated.
func (c *Config) SetValue(key, value string) error {
	switch key {
	case "install_root":
		c.InstallRoot = value
	case "catalog.url":
		c.Catalog.URL = value
	case "catalog.format":
		c.Catalog.Format = value
	case "catalog.required":
		c.Catalog.Required = splitList(value)
	case "catalog.prune":
		c.Catalog.Prune = value
	case "registry.url":
		c.Registry.URL = value
	case "http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s", key, value)
		}
		c.Settings.HTTPTimeout = d
	case "max_redirects", "max_retries", "integrity_retries", "concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		*c.intField(key) = n
	case "log_level":
		c.Settings.LogLevel = value
	case "log_file":
		c.Settings.LogFile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// GetValue returns the value of key as a string.
func (c *Config) GetValue(key string) (string, error) {
	switch key {
	case "install_root":
		return c.InstallRoot, nil
	case "catalog.url":
		return c.Catalog.URL, nil
	case "catalog.format":
		return c.Catalog.Format, nil
	case "catalog.required":
		return strings.Join(c.Catalog.Required, ","), nil
	case "catalog.prune":
		return c.Catalog.Prune, nil
	case "registry.url":
		return c.Registry.URL, nil
	case "http_timeout":
		return c.Settings.HTTPTimeout.String(), nil
	case "max_redirects", "max_retries", "integrity_retries", "concurrency":
		return strconv.Itoa(*c.intField(key)), nil
	case "log_level":
		return c.Settings.LogLevel, nil
	case "log_file":
		return c.Settings.LogFile, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// ToMap returns every key with its value. This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string, len(Keys))
	for _, key := range Keys {
		v, _ := c.GetValue(key)
		result[key] = v
	}
	return result
}

func (c *Config) intField(key string) *int {
	switch key {
	case "max_redirects":
		return &c.Settings.MaxRedirects
	case "max_retries":
		return &c.Settings.MaxRetries
	case "integrity_retries":
		return &c.Settings.IntegrityRetries
	default:
		return &c.Settings.Concurrency
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
