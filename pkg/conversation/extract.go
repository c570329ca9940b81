package conversation

import (
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*\\s*(.*?)\\s*```")

// ExtractJSON returns the body of the first fenced code block in content, or the trimmed content
// itself when there is no fence. The language tag of the fence is optional.
func ExtractJSON(content string) string {
	if match := fencedBlock.FindStringSubmatch(content); match != nil && match[1] != "" {
		return strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(content)
}
