package markdown

// LinkKind names the syntax a link target was written in.
type LinkKind string

const (
	LinkKindInline              LinkKind = "inline"
	LinkKindImage               LinkKind = "image"
	LinkKindAuto                LinkKind = "auto"
	LinkKindReferenceDefinition LinkKind = "reference_definition"
	LinkKindHTML                LinkKind = "html"
	LinkKindBare                LinkKind = "bare"
)

// Match is a link target found on one line.
type Match struct {
	Kind   LinkKind
	Start  int    // Byte offset of the first character of Target in the line
	Target string // Destination exactly as written (angle brackets removed)
}
