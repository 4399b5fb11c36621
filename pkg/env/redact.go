package env

import (
	"net/url"
	"strings"
)

// sensitiveParams are query parameters masked by RedactURL. The
// device-farm endpoint carries its credentials inside caps.
var sensitiveParams = map[string]bool{
	"caps":        true,
	"token":       true,
	"access_key":  true,
	"accesskey":   true,
}

// RedactAPIKey masks a key, showing only the first 4 and last 4
// characters.
func RedactAPIKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// RedactURL masks the password part of the user info and the
// values of sensitive query parameters.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.User != nil {
		if password, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), RedactAPIKey(password))
		}
	}
	if u.RawQuery != "" {
		q := u.Query()
		changed := false
		for k := range q {
			if sensitiveParams[strings.ToLower(k)] {
				q.Set(k, "****")
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}
	return u.String()
}

// RedactHeaders masks sensitive header values.
func RedactHeaders(headers map[string]string) map[string]string {
	sensitive := map[string]bool{
		"authorization":       true,
		"x-api-key":           true,
		"api-key":             true,
		"x-auth-token":        true,
		"cookie":              true,
		"set-cookie":          true,
		"proxy-authorization": true,
	}

	result := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitive[strings.ToLower(k)] {
			result[k] = RedactAPIKey(v)
		} else {
			result[k] = v
		}
	}
	return result
}
