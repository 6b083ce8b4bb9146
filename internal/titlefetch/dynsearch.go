package titlefetch

// differenceCheck reproduces original_source/plugins/title_plugin.py's
// difference_check: for short strings (<14 chars, either side) any
// inequality counts; for longer strings, edit distance >= 7
// (spec.md §4.3).
func differenceCheck(a, s string) bool {
	if len(a) < 14 || len(s) < 14 {
		return a != s
	}
	return levenshtein(a, s) >= 7
}

// Dynsearch walks the URL path segments recursively, requiring the
// title to differ from every suffix-concatenation of the segments
// after the first (from the only segment, when there is just one)
// (spec.md §4.3, ported from title_plugin.py's dynsearch).
//
// pathSegments is the output of prepareURL; title is the output of
// prepareTitle. Returns true iff the title is sufficiently different
// from the path to be worth announcing.
func Dynsearch(pathSegments []string, title string) bool {
	if len(pathSegments) == 0 {
		return true
	}
	return dynsearch(pathSegments, title)
}

func dynsearch(segments []string, title string) bool {
	head, tail := segments[0], segments[1:]
	if len(tail) == 0 {
		return differenceCheck(head, title)
	}
	if !dynsearch(tail, title) {
		return false
	}
	return differenceCheck(joinSegments(tail), title)
}

func joinSegments(segments []string) string {
	total := 0
	for _, s := range segments {
		total += len(s)
	}
	buf := make([]byte, 0, total)
	for _, s := range segments {
		buf = append(buf, s...)
	}
	return string(buf)
}

// ShouldAnnounce decides whether title is worth announcing for rawURL,
// combining prepareURL/prepareTitle with Dynsearch.
func ShouldAnnounce(rawURL, title string) bool {
	return Dynsearch(prepareURL(rawURL), prepareTitle(title))
}

// levenshtein computes the classic edit distance between a and b.
// No ecosystem Levenshtein package appears anywhere in the retrieval
// pack, so this stays on plain Go (DESIGN.md records the absence).
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min(del, min(ins, sub))
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}
