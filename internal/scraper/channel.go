package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidChannelURL is returned when a channel URL does not name a public channel.
var ErrInvalidChannelURL = errors.New("invalid channel url")

// usernamePattern follows Telegram's public username rules.
var usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{3,31}$`)

// ChannelUsername extracts the public username from a channel reference.
// Accepted forms: https://t.me/name, t.me/name, https://t.me/s/name, @name, name.
func ChannelUsername(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	name := strings.TrimPrefix(ref, "@")

	if strings.Contains(ref, "/") {
		raw := ref
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}

		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidChannelURL, err)
		}

		host := strings.ToLower(u.Hostname())
		if host != "t.me" && host != "telegram.me" {
			return "", fmt.Errorf("%w: unexpected host %q", ErrInvalidChannelURL, host)
		}

		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) > 0 && parts[0] == "s" {
			parts = parts[1:]
		}
		if len(parts) == 0 {
			return "", fmt.Errorf("%w: missing channel in %q", ErrInvalidChannelURL, ref)
		}
		name = parts[0]
	}

	if !usernamePattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q is not a public username", ErrInvalidChannelURL, name)
	}

	return name, nil
}

// PreviewURL returns the preview page for username. A positive before
// limits the page to messages older than that id.
func PreviewURL(username string, before int64) string {
	u := PreviewBase + username
	if before > 0 {
		u += "?before=" + strconv.FormatInt(before, 10)
	}
	return u
}
