package migrator

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// sanitizeConnectionError takes an error from the migrate library and returns
// a version safe to log. The migrate library includes the full database URL
// in its error messages, credentials and all. When credentials cannot be
// reliably detected the whole URL is redacted; losing context beats leaking
// a password.
func sanitizeConnectionError(err error, dbURL string) error {
	if err == nil {
		return nil
	}

	errMsg := err.Error()

	if dbURL != "" && strings.Contains(errMsg, dbURL) {
		if u, parseErr := url.Parse(dbURL); parseErr == nil && u != nil && u.Host != "" {
			safeURL := fmt.Sprintf("%s://[REDACTED]@%s/[REDACTED]", u.Scheme, u.Host)
			errMsg = strings.ReplaceAll(errMsg, dbURL, safeURL)
		} else {
			errMsg = strings.ReplaceAll(errMsg, dbURL, "[DATABASE_URL_REDACTED]")
		}
	}

	sanitized := removeCredentialsFromError(errMsg, dbURL)

	return fmt.Errorf("migrate.New: %s", sanitized)
}

// removeCredentialsFromError parses the database URL to identify credentials
// and replaces every occurrence in the error string, including URL-encoded
// forms.
func removeCredentialsFromError(errMsg string, dbURL string) string {
	if dbURL == "" {
		return errMsg
	}

	u, err := url.Parse(dbURL)
	if err != nil || u == nil || u.Scheme == "" || u.User == nil {
		// Unparseable URL, likely quoted inside a parse error. Extract the
		// user:password section by hand and fall back to pattern matching.
		result := errMsg
		if idx := strings.Index(dbURL, "://"); idx >= 0 {
			afterScheme := dbURL[idx+3:]
			if atIdx := strings.Index(afterScheme, "@"); atIdx >= 0 {
				userInfo := afterScheme[:atIdx]
				if colonIdx := strings.Index(userInfo, ":"); colonIdx >= 0 {
					username := userInfo[:colonIdx]
					password := userInfo[colonIdx+1:]
					result = strings.ReplaceAll(result, password, "[REDACTED]")
					result = strings.ReplaceAll(result, userInfo, username+":[REDACTED]")
				}
			}
		}
		return removeCommonCredentialPatterns(result)
	}

	result := errMsg

	if strings.Contains(result, dbURL) {
		sanitizedURL := sanitizeURL(u)
		result = strings.ReplaceAll(result, dbURL, sanitizedURL)
		result = strings.ReplaceAll(result, `"`+dbURL+`"`, `"`+sanitizedURL+`"`)
		result = strings.ReplaceAll(result, `'`+dbURL+`'`, `'`+sanitizedURL+`'`)
	}

	if pass, hasPass := u.User.Password(); hasPass && pass != "" {
		result = strings.ReplaceAll(result, pass, "[REDACTED]")
		if username := u.User.Username(); username != "" {
			result = strings.ReplaceAll(result, username+":"+pass, username+":[REDACTED]")
		}
		if encodedPass := url.QueryEscape(pass); encodedPass != pass {
			result = strings.ReplaceAll(result, encodedPass, "[REDACTED]")
		}
	}

	if userInfo := u.User.String(); userInfo != "" && strings.Contains(result, userInfo) {
		sanitizedUser := u.User.Username()
		if sanitizedUser != "" {
			sanitizedUser += ":[REDACTED]"
		}
		result = strings.ReplaceAll(result, userInfo, sanitizedUser)
	}

	return result
}

// sanitizeURL rebuilds a URL with the password redacted. Built by hand so
// [REDACTED] is not URL-encoded.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	var result strings.Builder
	result.WriteString(u.Scheme)
	result.WriteString("://")

	if u.User != nil {
		if username := u.User.Username(); username != "" {
			result.WriteString(username)
			result.WriteString(":[REDACTED]@")
		}
	}

	result.WriteString(u.Host)
	result.WriteString(u.Path)
	if u.RawQuery != "" {
		result.WriteString("?")
		result.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		result.WriteString("#")
		result.WriteString(u.Fragment)
	}

	return result.String()
}

// removeCommonCredentialPatterns is the last resort when the URL cannot be
// parsed at all.
func removeCommonCredentialPatterns(errMsg string) string {
	result := errMsg

	patterns := []struct {
		regex   string
		replace string
	}{
		{`(\b\w+):([^@\s]+)@`, "$1:[REDACTED]@"},
		{`password=([^&\s]+)`, "password=[REDACTED]"},
		{`"password":\s*"[^"]*"`, `"password":"[REDACTED]"`},
		{`'password':\s*'[^']*'`, `'password':'[REDACTED]'`},
		{`://([^:]+):([^@]+)@`, "://$1:[REDACTED]@"},
	}

	for _, p := range patterns {
		re := regexp.MustCompile(p.regex)
		result = re.ReplaceAllString(result, p.replace)
	}

	return result
}
