package markdown

import (
	"regexp"
	"sort"
	"strings"
)

var (
	refDefPattern   = regexp.MustCompile(`^ {0,3}\[((?:\\.|[^\]\\])+)\]:[ \t]*`)
	autolinkPattern = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9+.\-]{1,31}:[^\s<>]*)>`)
	htmlTagPattern  = regexp.MustCompile(`(?i)<(?:a|img|source|link|iframe)\s[^>]*`)
	htmlAttrPattern = regexp.MustCompile(`(?i)\s(?:href|src)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'>]+))`)
	bareURLPattern  = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"'` + "`" + `]+`)
)

type span struct{ start, end int }

type spans []span

func (s spans) covers(pos int) bool {
	for _, sp := range s {
		if pos >= sp.start && pos < sp.end {
			return true
		}
	}
	return false
}

// ScanLine returns every link target on a single line of Markdown text, in
// order of position. Code must already be masked (see MaskCode and
// MaskInlineCode); the scanner treats every remaining byte as prose.
func ScanLine(line string) []Match {
	if !strings.ContainsAny(line, "[<:") {
		return nil
	}

	if m, ok := scanReferenceDefinition(line); ok {
		return []Match{m}
	}

	var (
		out      []Match
		consumed spans
	)

	// Inline links and images.
	for i := 0; i+1 < len(line); i++ {
		if line[i] != ']' || line[i+1] != '(' || isEscaped(line, i) {
			continue
		}
		open := findOpenBracket(line, i)
		if open < 0 {
			continue
		}
		start, target, end, ok := parseDestination(line, i+2)
		if !ok {
			continue
		}
		kind := LinkKindInline
		if open > 0 && line[open-1] == '!' {
			kind = LinkKindImage
			open--
		}
		out = append(out, Match{Kind: kind, Start: start, Target: target})
		consumed = append(consumed, span{open, end})
	}

	for _, loc := range autolinkPattern.FindAllStringSubmatchIndex(line, -1) {
		if consumed.covers(loc[0]) {
			continue
		}
		out = append(out, Match{Kind: LinkKindAuto, Start: loc[2], Target: line[loc[2]:loc[3]]})
		consumed = append(consumed, span{loc[0], loc[1]})
	}

	for _, tag := range htmlTagPattern.FindAllStringIndex(line, -1) {
		if consumed.covers(tag[0]) {
			continue
		}
		body := line[tag[0]:tag[1]]
		for _, loc := range htmlAttrPattern.FindAllStringSubmatchIndex(body, -1) {
			for g := 2; g+1 < len(loc); g += 2 {
				if loc[g] < 0 {
					continue
				}
				out = append(out, Match{Kind: LinkKindHTML, Start: tag[0] + loc[g], Target: body[loc[g]:loc[g+1]]})
				break
			}
		}
		consumed = append(consumed, span{tag[0], tag[1]})
	}

	for _, loc := range bareURLPattern.FindAllStringIndex(line, -1) {
		if consumed.covers(loc[0]) {
			continue
		}
		url := trimBareURL(line[loc[0]:loc[1]])
		if len(url) <= len("https://") {
			continue
		}
		out = append(out, Match{Kind: LinkKindBare, Start: loc[0], Target: url})
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Start < out[b].Start })
	return out
}

func scanReferenceDefinition(line string) (Match, bool) {
	loc := refDefPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return Match{}, false
	}
	// Footnote definitions ([^1]: ...) are not link definitions.
	if strings.HasPrefix(line[loc[2]:loc[3]], "^") {
		return Match{}, false
	}

	rest := line[loc[1]:]
	start := loc[1]
	if strings.HasPrefix(rest, "<") {
		closeIdx := strings.IndexByte(rest, '>')
		if closeIdx < 0 {
			return Match{}, false
		}
		return Match{Kind: LinkKindReferenceDefinition, Start: start + 1, Target: rest[1:closeIdx]}, true
	}

	end := strings.IndexAny(rest, " \t")
	if end < 0 {
		end = len(rest)
	}
	if end == 0 {
		return Match{}, false
	}
	return Match{Kind: LinkKindReferenceDefinition, Start: start, Target: rest[:end]}, true
}

// findOpenBracket walks back from the ']' at closeIdx to its matching '['.
func findOpenBracket(line string, closeIdx int) int {
	depth := 0
	for j := closeIdx - 1; j >= 0; j-- {
		if isEscaped(line, j) {
			continue
		}
		switch line[j] {
		case ']':
			depth++
		case '[':
			if depth == 0 {
				return j
			}
			depth--
		}
	}
	return -1
}

// parseDestination parses `target "title")` starting right after "](".
// It returns the target's offset, its text and the offset just past ')'.
func parseDestination(line string, pos int) (int, string, int, bool) {
	i := skipSpace(line, pos)
	if i >= len(line) {
		return 0, "", 0, false
	}

	var start, stop int
	if line[i] == '<' {
		closeIdx := strings.IndexByte(line[i+1:], '>')
		if closeIdx < 0 {
			return 0, "", 0, false
		}
		start, stop = i+1, i+1+closeIdx
		i = stop + 1
	} else {
		start = i
		depth := 0
	loop:
		for ; i < len(line); i++ {
			c := line[i]
			switch {
			case c == '\\' && i+1 < len(line):
				i++
			case c == ' ' || c == '\t':
				break loop
			case c == '(':
				depth++
			case c == ')':
				if depth == 0 {
					break loop
				}
				depth--
			}
		}
		stop = i
	}

	i = skipSpace(line, i)
	if i < len(line) && (line[i] == '"' || line[i] == '\'' || line[i] == '(') {
		closer := line[i]
		if closer == '(' {
			closer = ')'
		}
		closeIdx := strings.IndexByte(line[i+1:], closer)
		if closeIdx < 0 {
			return 0, "", 0, false
		}
		i = skipSpace(line, i+1+closeIdx+1)
	}
	if i >= len(line) || line[i] != ')' {
		return 0, "", 0, false
	}
	return start, line[start:stop], i + 1, true
}

// trimBareURL drops trailing punctuation that GFM excludes from autolinked
// URLs, including unbalanced closing brackets of any kind.
func trimBareURL(u string) string {
	for len(u) > 0 {
		last := u[len(u)-1]
		switch last {
		case '.', ',', ':', ';', '!', '?', '*', '_', '~':
			u = u[:len(u)-1]
			continue
		case ')':
			if strings.Count(u, "(") < strings.Count(u, ")") {
				u = u[:len(u)-1]
				continue
			}
		case ']':
			if strings.Count(u, "[") < strings.Count(u, "]") {
				u = u[:len(u)-1]
				continue
			}
		case '}':
			if strings.Count(u, "{") < strings.Count(u, "}") {
				u = u[:len(u)-1]
				continue
			}
		}
		break
	}
	return u
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}

func isEscaped(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// MaskInlineCode replaces inline code spans in line with spaces, keeping byte
// offsets intact. An unclosed backtick run is left as is.
func MaskInlineCode(line string) string {
	if !strings.Contains(line, "`") {
		return line
	}

	b := []byte(line)
	for i := 0; i < len(b); {
		if b[i] != '`' {
			i++
			continue
		}
		run := 1
		for i+run < len(b) && b[i+run] == '`' {
			run++
		}
		marker := strings.Repeat("`", run)
		closeRel := strings.Index(line[i+run:], marker)
		if closeRel < 0 {
			i += run
			continue
		}
		end := i + run + closeRel + run
		for k := i; k < end; k++ {
			b[k] = ' '
		}
		i = end
	}
	return string(b)
}
