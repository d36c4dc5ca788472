package history

// truncationMarker is appended to tool output that had to be cut down to
// fit the response token budget.
const truncationMarker = "\n\n[Truncated: tool output exceeded the response token budget]"

// TruncateOversizedToolOutput bounds a tool execution result to the
// profile's response reservation by repeated halving, appending a
// truncation marker. Content already under the cap is returned unchanged,
// so the transform is idempotent. This is a silent content transform for
// tool results re-entering history, not an error path.
func (p Profile) TruncateOversizedToolOutput(content string) string {
	limit := p.MaxResponseTokens
	if limit <= 0 || textTokens(content) <= limit {
		return content
	}

	truncated := []rune(content)
	for len(truncated) > 0 && textTokens(string(truncated))+textTokens(truncationMarker) > limit {
		truncated = truncated[:len(truncated)/2]
	}
	return string(truncated) + truncationMarker
}
