package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// BuildDSN assembles a MySQL DSN from the structured database section.
// Returns "" when no host/name is configured.
func (d *DatabaseRuntimeConfig) BuildDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	if d.Host == "" || d.Name == "" {
		return ""
	}

	port := d.Port
	if port == 0 {
		port = 3306
	}
	user := d.User
	if user == "" {
		user = "root"
	}
	charset := d.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	loc := d.Loc
	if loc == "" {
		loc = "Local"
	}

	// parseTime is always on: the models scan into time.Time.
	params := []string{
		"charset=" + charset,
		"parseTime=True",
		"loc=" + url.QueryEscape(loc),
	}
	if len(d.Params) > 0 {
		keys := make([]string, 0, len(d.Params))
		for k := range d.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			params = append(params, url.QueryEscape(k)+"="+url.QueryEscape(d.Params[k]))
		}
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		user, d.Password, d.Host, port, d.Name, strings.Join(params, "&"))
}
