package daemonlog

import "strings"

var _escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
)

// QuoteValue renders a logfmt value. Values that are empty or contain a space, '=', '"', '\\',
// '\n' or '\r' are quoted and escaped so the record stays on one physical line.
func QuoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " =\"\\\n\r") {
		return v
	}
	return `"` + _escaper.Replace(v) + `"`
}
