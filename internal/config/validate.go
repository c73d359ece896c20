package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks the loaded config for required fields and safe values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return errors.New("server.addr must be set")
	}

	if strings.TrimSpace(cfg.Audit.Path) == "" {
		return errors.New("audit.path must be set")
	}
	if cfg.Audit.MaxBytes <= 0 {
		return errors.New("audit.max_bytes must be positive")
	}

	if cfg.Fetcher.Enabled {
		if cfg.Fetcher.TimeoutSecs <= 0 {
			return errors.New("fetcher.timeout_secs must be positive")
		}
		if err := validateEndpoint("fetcher.base_url", cfg.Fetcher.BaseURL); err != nil {
			return err
		}
	}

	if err := validateEndpoint("extractor.base_url", cfg.Extractor.BaseURL); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Correlation.Dir) == "" {
		return errors.New("correlation.dir must be set")
	}

	if cfg.Notify.WebhookURL != "" {
		if err := validateEndpoint("notify.webhook_url", cfg.Notify.WebhookURL); err != nil {
			return err
		}
		u, _ := url.Parse(cfg.Notify.WebhookURL)
		if err := blockPrivateHost(u.Host, cfg.Notify.AllowPrivateWebhooks); err != nil {
			return fmt.Errorf("notify.webhook_url blocked: %w", err)
		}
	}

	if cfg.Guard.BundleDir != "" && cfg.Guard.SeqLen <= 0 {
		return errors.New("guard.seq_len must be positive")
	}

	return nil
}

// validateEndpoint accepts an empty value (field is optional) and otherwise
// requires a well-formed http or https URL.
func validateEndpoint(field, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s is not a valid URL", field)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be http or https", field)
	}
	return nil
}

func blockPrivateHost(hostport string, allowPrivate bool) error {
	if allowPrivate {
		return nil
	}
	host := hostport
	if strings.Contains(hostport, "]") || strings.Contains(hostport, ":") {
		h, _, err := net.SplitHostPort(hostport)
		if err == nil {
			host = h
		}
	}
	lc := strings.ToLower(strings.TrimSpace(host))
	if lc == "localhost" {
		return errors.New("private network host localhost blocked for SSRF safety")
	}

	if ip := net.ParseIP(host); ip != nil && isPrivateIP(ip) {
		return fmt.Errorf("private network IP %s blocked for SSRF safety", ip.String())
	}
	return nil
}

func isPrivateIP(ip net.IP) bool {
	privateBlocks := []*net.IPNet{
		{IP: net.ParseIP("127.0.0.0"), Mask: net.CIDRMask(8, 32)},
		{IP: net.ParseIP("10.0.0.0"), Mask: net.CIDRMask(8, 32)},
		{IP: net.ParseIP("172.16.0.0"), Mask: net.CIDRMask(12, 32)},
		{IP: net.ParseIP("192.168.0.0"), Mask: net.CIDRMask(16, 32)},
		{IP: net.ParseIP("169.254.0.0"), Mask: net.CIDRMask(16, 32)},
		{IP: net.ParseIP("::1"), Mask: net.CIDRMask(128, 128)},
		{IP: net.ParseIP("fc00::"), Mask: net.CIDRMask(7, 128)},
		{IP: net.ParseIP("fe80::"), Mask: net.CIDRMask(10, 128)},
	}
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
