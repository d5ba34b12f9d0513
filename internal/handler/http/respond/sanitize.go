package respond

import (
	"regexp"
)

var (
	// JWTs: anon keys, service keys and session tokens all share this shape.
	jwtPattern = regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`)

	apikeyParamPattern = regexp.MustCompile(`(?i)(apikey|access_token|refresh_token)=[^&\s"]+`)

	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[^\s"]+`)

	// credentials inside a DSN
	dbPasswordPattern = regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`)
)

// SanitizeError returns err's message with credentials masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = apikeyParamPattern.ReplaceAllString(msg, "$1=****")
	msg = bearerPattern.ReplaceAllString(msg, "Bearer ****")
	msg = jwtPattern.ReplaceAllString(msg, "eyJ****")
	msg = dbPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	return msg
}
