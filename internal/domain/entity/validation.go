package entity

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// maxURLLength defines the maximum allowed length for endpoint URLs.
const maxURLLength = 2048

// Validate checks that the notification carries the fields every channel
// relies on. Channel-specific requirements are checked by the adapters.
func (n *Notification) Validate() error {
	if n == nil {
		return &ValidationError{Field: "notification", Message: "notification is required"}
	}
	if strings.TrimSpace(n.ID) == "" {
		return &ValidationError{Field: "id", Message: "notification id is required"}
	}
	if strings.TrimSpace(n.User.ID) == "" {
		return &ValidationError{Field: "user.id", Message: "user id is required"}
	}
	return nil
}

// ValidateEndpointURL validates the format of an outbound endpoint URL.
// When blockPrivate is true, hosts resolving to loopback, link-local or
// private ranges are rejected to prevent SSRF through tenant-supplied URLs.
func ValidateEndpointURL(rawURL string, blockPrivate bool) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a valid host"}
	}

	if !blockPrivate {
		return nil
	}

	host := parsedURL.Hostname()
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return &ValidationError{Field: "url", Message: "url cannot point to private network"}
		}
		return nil
	}
	ips, err := net.LookupIP(host)
	if err == nil {
		for _, ip := range ips {
			if isPrivateIP(ip) {
				return &ValidationError{Field: "url", Message: "url cannot point to private network"}
			}
		}
	}

	return nil
}

// isPrivateIP checks if an IP address is in a private or restricted range:
// loopback, link-local (including cloud metadata) and RFC 1918 networks.
func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsPrivate() {
		return true
	}

	_, metadata, _ := net.ParseCIDR("169.254.0.0/16")
	return metadata.Contains(ip)
}
