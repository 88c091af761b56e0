package linkverify

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/checklinks/internal/frontmatter"
	"git.home.luguber.info/inful/checklinks/internal/markdown"
)

// githubPrefix is prepended by GitHub to ids in rendered user content.
const githubPrefix = "user-content-"

// AnchorSet holds the fragment identifiers a document defines. Lookups are
// case-insensitive and Unicode-normalized.
type AnchorSet struct {
	ids map[string]struct{}
}

// NewAnchorSet returns a set containing ids.
func NewAnchorSet(ids ...string) *AnchorSet {
	s := &AnchorSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add records id. Empty ids are ignored.
func (s *AnchorSet) Add(id string) {
	key := foldAnchor(id)
	if key == "" {
		return
	}
	s.ids[key] = struct{}{}
	if trimmed, ok := strings.CutPrefix(key, githubPrefix); ok && trimmed != "" {
		s.ids[trimmed] = struct{}{}
	}
}

// Has reports whether fragment names an anchor in the set. Besides the exact
// id it accepts the heading-style spelling with spaces instead of dashes.
func (s *AnchorSet) Has(fragment string) bool {
	if s == nil {
		return false
	}
	key := foldAnchor(fragment)
	if _, ok := s.ids[key]; ok {
		return true
	}
	if trimmed, ok := strings.CutPrefix(key, githubPrefix); ok {
		if _, ok := s.ids[trimmed]; ok {
			return true
		}
	}
	_, ok := s.ids[markdown.Slug(key)]
	return ok
}

// Len returns the number of distinct anchors.
func (s *AnchorSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

func foldAnchor(s string) string {
	// Casers are stateful; one per call.
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// AnchorsFromHTML collects id attributes and <a name> targets from an HTML
// document.
func AnchorsFromHTML(r io.Reader) (*AnchorSet, error) {
	set := NewAnchorSet()
	if err := addHTMLAnchors(set, r); err != nil {
		return nil, err
	}
	return set, nil
}

func addHTMLAnchors(set *AnchorSet, r io.Reader) error {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			isAnchor := string(name) == "a"
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				switch string(key) {
				case "id":
					set.Add(string(val))
				case "name":
					if isAnchor {
						set.Add(string(val))
					}
				}
			}
		}
	}
}

// AnchorsFromMarkdown collects the heading anchors of a Markdown document
// together with ids defined by inline HTML.
func AnchorsFromMarkdown(content []byte) *AnchorSet {
	_, body, _, _ := frontmatter.Split(content)
	set := NewAnchorSet(markdown.HeadingIDs(body)...)
	if bytes.ContainsRune(body, '<') {
		_ = addHTMLAnchors(set, bytes.NewReader(markdown.MaskCode(body)))
	}
	return set
}
