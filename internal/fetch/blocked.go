// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"net"
	"net/url"
	"strings"
)

// adPatterns are substrings of ad, tracking and search-engine junk URLs.
var adPatterns = []string{
	"duckduckgo.com/y.js",
	"duckduckgo.com/duckduckgo-help",
	"/ad_", "ad_domain=", "ad_provider=", "ad_type=",
	".js?", "/aclick?",
	"doubleclick.net", "googlesyndication.com",
}

// blocked reports whether rawURL must not be fetched: unparsable, not
// http(s), an ad or tracking link, or (unless allowPrivate) a loopback or
// private network host.
func blocked(rawURL string, allowPrivate bool) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return true
	}
	for _, p := range adPatterns {
		if strings.Contains(rawURL, p) {
			return true
		}
	}
	if allowPrivate {
		return false
	}
	return privateHost(u.Hostname())
}

func privateHost(host string) bool {
	host = strings.ToLower(host)
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return true
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}
