// Package fuzzy implements the bounded-window substring matcher used to
// filter candidates on every keystroke.
package fuzzy

import "strings"

// WindowSize is how many haystack bytes may be skipped looking for the next
// pattern byte, counted from the byte after the previous match.
const WindowSize = 5

// Match reports whether pattern matches haystack. Both must already be
// lowercased by the caller; no case folding happens here.
//
// Matching anchors on every occurrence of the first pattern byte and then
// requires each following pattern byte to appear, in order, within
// WindowSize bytes of the previous match.
func Match(haystack, pattern string) bool {
	if len(pattern) == 0 {
		return true
	}
	if len(haystack) == 0 {
		return false
	}

	target := haystack
	for {
		pos := strings.IndexByte(target, pattern[0])
		if pos < 0 {
			return false
		}
		if sequential(pattern, target[pos:]) {
			return true
		}
		if pos+1 >= len(target) {
			return false
		}
		target = target[pos+1:]
	}
}

// sequential checks pattern[1:] against target, where target[0] already
// matched pattern[0].
func sequential(pattern, target string) bool {
	t := 1
	for k := 1; k < len(pattern); k++ {
		limit := min(t+WindowSize, len(target))
		found := false
		for t < limit {
			c := target[t]
			t++
			if c == pattern[k] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
