package providers

import "sort"

// defaultPageSize bounds how many items a single list call returns
// before requiring a follow-up cursor, keeping tools/resources/prompts
// list responses bounded regardless of how many are registered.
const defaultPageSize = 50

// paginate returns the slice of sorted names starting after cursor (the
// last name returned by the previous page, or "" for the first page),
// the next cursor (empty when exhausted), and whether cursor was valid.
// An empty-but-non-nil cursor from a caller that never saw one is
// treated as the start of the list, matching "cursor absent" semantics.
func paginate(names []string, cursor string) (page []string, next string, ok bool) {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	start := 0
	if cursor != "" {
		idx := sort.SearchStrings(sorted, cursor)
		if idx == len(sorted) || sorted[idx] != cursor {
			return nil, "", false
		}
		start = idx + 1
	}

	end := start + defaultPageSize
	if end > len(sorted) {
		end = len(sorted)
	}
	page = sorted[start:end]
	if end < len(sorted) {
		next = sorted[end-1]
	}
	return page, next, true
}
