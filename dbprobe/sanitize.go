package dbprobe

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

// Mask replaces credentials in anything shown to a user or written to a log.
const Mask = "***"

var (
	// //user:pass@ or //user@ in a URI.
	uriCredentials = regexp.MustCompile(`//[^/@]*@`)
	// password=value in key/value DSNs, quoted or not.
	kvPassword = regexp.MustCompile(`(?i)(password|pass|pwd)=('[^']*'|"[^"]*"|[^\s;&]*)`)
)

// SanitizeURI masks userinfo and password parameters in a connection string.
func SanitizeURI(s string) string {
	s = uriCredentials.ReplaceAllString(s, "//"+Mask+":"+Mask+"@")
	return kvPassword.ReplaceAllString(s, "${1}="+Mask)
}

// Target returns the display form of the endpoint with credentials masked.
// Any remaining occurrence of the configured password (raw or URL-encoded)
// is scrubbed as well, so the result never contains it.
func Target(cfg EndpointConfig) string {
	var out string
	if cfg.URI != "" {
		out = SanitizeURI(cfg.URI)
	} else {
		scheme := string(cfg.Kind)
		addr := cfg.Host
		if cfg.Port != "" {
			addr = net.JoinHostPort(cfg.Host, cfg.Port)
		}
		out = scheme + "://"
		if cfg.User != "" || cfg.Password != "" {
			out += Mask + ":" + Mask + "@"
		}
		out += addr
		if cfg.Database != "" {
			out += "/" + cfg.Database
		}
	}

	for _, secret := range secrets(cfg) {
		out = strings.ReplaceAll(out, secret, Mask)
	}
	return out
}

// secrets returns every form of the password that could leak into output.
func secrets(cfg EndpointConfig) []string {
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		for _, v := range out {
			if v == s {
				return
			}
		}
		out = append(out, s)
	}

	add(cfg.Password)
	add(url.QueryEscape(cfg.Password))
	add(url.PathEscape(cfg.Password))
	if cfg.URI != "" {
		if p, err := ParseURI(cfg.URI); err == nil {
			add(p.Password)
			add(url.QueryEscape(p.Password))
			add(url.PathEscape(p.Password))
		}
	}
	return out
}

// Scrub removes every form of the endpoint password from msg. Driver error
// messages sometimes echo the connection string.
func Scrub(cfg EndpointConfig, msg string) string {
	msg = SanitizeURI(msg)
	for _, secret := range secrets(cfg) {
		msg = strings.ReplaceAll(msg, secret, Mask)
	}
	return msg
}
