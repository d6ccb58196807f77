package logging

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// Redacted replaces secret values in log output.
const Redacted = "***"

// sensitiveKeys are attribute keys whose values are never logged.
var sensitiveKeys = map[string]bool{
	"password": true,
	"secret":   true,
	"token":    true,
}

// keywordPassword matches password=... in keyword/value connection strings.
var keywordPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// RedactAttr is a slog ReplaceAttr function that masks secrets: values of
// sensitive keys and passwords inside connection strings.
func RedactAttr(groups []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, Redacted)
	}
	if a.Value.Kind() == slog.KindString {
		if s := a.Value.String(); strings.Contains(s, "@") || strings.Contains(strings.ToLower(s), "password") {
			return slog.String(a.Key, RedactDSN(s))
		}
	}
	return a
}

// RedactDSN masks the password of a database connection string in URL or
// keyword/value form.
func RedactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), Redacted)
			return strings.Replace(u.String(), url.QueryEscape(Redacted)+"@", Redacted+"@", 1)
		}
		return dsn
	}
	return keywordPassword.ReplaceAllString(dsn, "${1}"+Redacted)
}
