package cleaner

import "regexp"

// reJSRequired matches the usual "this page needs JavaScript" notices
// served to clients that do not run scripts.
var reJSRequired = regexp.MustCompile(
	`(?i)(enable|activate|turn\s+on|requires?|need)\s+(your\s+)?javascript` +
		`|javascript\s+(is\s+)?(required|disabled|must\s+be\s+enabled|is\s+not\s+enabled)`,
)

// RequiresJavaScript reports whether text reads like a placeholder asking
// the visitor to enable JavaScript. It is a phrase heuristic; both false
// positives and false negatives are expected.
func RequiresJavaScript(text string) bool {
	return reJSRequired.MatchString(text)
}
