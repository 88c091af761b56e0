package frontmatter

import (
	"bytes"
	"errors"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Block describes where a YAML frontmatter block sits in a document.
type Block struct {
	// Raw is the YAML between the delimiters.
	Raw []byte
	// BodyOffset is the byte offset of the first body byte in the document.
	BodyOffset int
	// BodyLine is the number of lines (delimiters included) before the body.
	BodyLine int
}

// Split separates YAML frontmatter (`---` delimited) from the Markdown body.
//
// If the document does not start with a YAML frontmatter delimiter, had is false
// and body is the full input.
func Split(content []byte) (block Block, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return Block{}, content, false, nil
	}

	start := len(open)
	closeLine := []byte("---" + nl)
	if bytes.HasPrefix(content[start:], closeLine) {
		bodyStart := start + len(closeLine)
		return Block{Raw: []byte{}, BodyOffset: bodyStart, BodyLine: 2}, content[bodyStart:], true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		// A trailing "---" without newline still closes the block.
		if bytes.HasSuffix(content, []byte(nl+"---")) {
			raw := content[start : len(content)-3]
			return Block{Raw: raw, BodyOffset: len(content), BodyLine: 2 + bytes.Count(raw, []byte("\n"))}, nil, true, nil
		}
		return Block{}, content, false, ErrMissingClosingDelimiter
	}

	end := start + idx + len(nl)
	bodyStart := start + idx + len(closeSeq)
	raw := content[start:end]
	return Block{
		Raw:        raw,
		BodyOffset: bodyStart,
		BodyLine:   2 + bytes.Count(raw, []byte("\n")),
	}, content[bodyStart:], true, nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
