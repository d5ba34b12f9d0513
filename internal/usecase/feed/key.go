package feed

import (
	"fmt"
	"strconv"
	"strings"
)

var keyEscaper = strings.NewReplacer(`\`, `\\`, "_", `\_`)

// cacheKey joins parts with "_" into a deduplication key. Parts are formatted
// with strconv so equal parameters always produce equal keys, and "_" inside
// string parts is escaped so distinct parameter lists never collide.
func cacheKey(parts ...any) string {
	out := make([]string, len(parts))
	for i, p := range parts {
		switch v := p.(type) {
		case string:
			out[i] = keyEscaper.Replace(v)
		case int:
			out[i] = strconv.Itoa(v)
		case bool:
			out[i] = strconv.FormatBool(v)
		case float64:
			out[i] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			out[i] = keyEscaper.Replace(fmt.Sprint(v))
		}
	}
	return strings.Join(out, "_")
}

func categoryKey(category string) string {
	if category == "" {
		return "all"
	}
	return category
}
