package router

import "strings"

// reasoningMarkers and backgroundMarkers are substrings of a virtual
// model name that mark it as belonging to the "reasoning" or
// "background" category when nothing upstream already decided the
// category for it (§4.3 step 1: "reasoning markers in the model
// name" / "small/background model markers").
var reasoningMarkers = []string{"reasoning", "think", "o1", "o3", "r1"}
var backgroundMarkers = []string{"background", "mini", "nano", "haiku", "flash", "small"}

func hasMarker(haystack string, markers []string) bool {
	lower := strings.ToLower(haystack)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// webSearchToolNames are tool names recognized as web-search
// capability by presence alone, not by schema inspection.
var webSearchToolNames = []string{"web_search", "web_browse", "browser", "search"}

func hasWebSearchTool(toolNames []string) bool {
	for _, name := range toolNames {
		lower := strings.ToLower(name)
		for _, w := range webSearchToolNames {
			if strings.Contains(lower, w) {
				return true
			}
		}
	}
	return false
}
