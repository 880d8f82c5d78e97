// Package config loads the typed application configuration from viper.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a path setting such as database.path, sms.inbox or the
// certificate directory. Environment variables are expanded first, so a
// variable may itself start with ~; a leading ~ is then replaced by the home
// directory. The result is cleaned. Blank input yields "" and ~user forms
// are left as they are.
func ExpandPath(path string) string {
	path = os.ExpandEnv(strings.TrimSpace(path))
	if path == "" {
		return ""
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return filepath.Clean(path)
}
