package usemin

import "regexp"

const (
	// PipelineRemove drops a block from the document without reading its assets
	PipelineRemove = "remove"
	// PipelineHTML is applied to the rewritten document itself
	PipelineHTML = "html"
)

var (
	reStart     = regexp.MustCompile(`(?i)<!--\s*build:(\w+)(?:\(([^\)]+?)\))?\s+(/?([^\s]+?))?\s*-->`)
	reEnd       = regexp.MustCompile(`(?i)<!--\s*endbuild\s*-->`)
	reCondStart = regexp.MustCompile(`(?i)<!--\[[^\]]+\]>`)
	reCondEnd   = regexp.MustCompile(`(?i)<!\[endif\]-->`)
	reComment   = regexp.MustCompile(`(?s)<!--.*?-->`)

	reScript = regexp.MustCompile(`(?i)<\s*script\s+.*?src\s*=\s*(?:"([^"]+)"|'([^']+)').*?><\s*/\s*script\s*>`)
	reStyle  = regexp.MustCompile(`(?i)<\s*link\s+.*?href\s*=\s*(?:"([^"]+)"|'([^']+)').*?>`)
)

type (
	SectionKind uint8
	BlockKind   uint8

	// Section is either a literal piece of the document
	// or a build block to be replaced.
	Section struct {
		Kind  SectionKind
		Text  string
		Block *Block
	}

	// Conditional is an IE conditional comment pair found inside a block
	Conditional struct {
		Start string
		End   string
	}

	BlockMeta struct {
		PipelineID string
		OutputName string // Output path without leading slash, e.g. js/app.js
		OutputPath string // Output path as written in the marker, e.g. /js/app.js
		AltRoot    string // Alternate source root from build:id(root)
		Remove     bool
		Cond       *Conditional
	}

	Block struct {
		BlockMeta
		Marker string    // Start marker text, used in error messages
		Inner  string    // Raw HTML between markers
		Assets string    // Inner with all comments stripped
		Kind   BlockKind // Decided once from Assets
	}
)

const (
	SectionLiteral SectionKind = iota
	SectionBlock
)

const (
	KindScript BlockKind = iota
	KindStyle
)

func (k BlockKind) String() string {
	switch k {
	case KindStyle:
		return "css"
	default:
		return "js"
	}
}

// Tag returns the reference markup for ref
func (k BlockKind) Tag(ref string) string {
	if k == KindStyle {
		return `<link rel="stylesheet" href="` + ref + `"/>`
	}
	return `<script src="` + ref + `"></script>`
}

func (k BlockKind) tagRegexp() *regexp.Regexp {
	if k == KindStyle {
		return reStyle
	}
	return reScript
}

// Parse splits text into literal and block sections in document order.
//
// The text is first split on endbuild markers, dropping them. A chunk without
// a build marker is literal. Otherwise the last build marker of the chunk is
// closed by the endbuild that ended the chunk, and everything before that
// marker, earlier markers included, is literal.
func Parse(text string) ([]Section, error) {
	ends := reEnd.FindAllStringIndex(text, -1)
	chunks := make([]string, 0, len(ends)+1)
	prev := 0
	for _, loc := range ends {
		chunks = append(chunks, text[prev:loc[0]])
		prev = loc[1]
	}
	chunks = append(chunks, text[prev:])

	sections := make([]Section, 0, len(chunks)*2)
	for i, chunk := range chunks {
		closed := i < len(ends)
		starts := reStart.FindAllStringSubmatchIndex(chunk, -1)

		switch {
		case len(starts) == 0:
			sections = appendLiteral(sections, chunk)
			continue

		case !closed:
			loc := starts[0]
			return nil, &ParseError{
				Marker: chunk[loc[0]:loc[1]],
				Reason: "missing <!-- endbuild -->",
			}
		}

		loc := starts[len(starts)-1]
		sections = appendLiteral(sections, chunk[:loc[0]])
		sections = append(sections, Section{
			Kind:  SectionBlock,
			Block: newBlock(chunk, loc),
		})
	}

	return sections, nil
}

func appendLiteral(sections []Section, text string) []Section {
	if text == "" {
		return sections
	}
	return append(sections, Section{Kind: SectionLiteral, Text: text})
}

// newBlock builds a block from chunk and the submatch indices of its start marker
func newBlock(chunk string, loc []int) *Block {
	group := func(n int) string {
		start, end := loc[2*n], loc[2*n+1]
		if start < 0 {
			return ""
		}
		return chunk[start:end]
	}

	inner := chunk[loc[1]:]
	b := &Block{
		BlockMeta: BlockMeta{
			PipelineID: group(1),
			AltRoot:    group(2),
			OutputPath: group(3),
			OutputName: group(4),
		},
		Marker: group(0),
		Inner:  inner,
	}
	b.Remove = b.PipelineID == PipelineRemove

	condStart := reCondStart.FindString(inner)
	condEnd := reCondEnd.FindString(inner)
	if condStart != "" && condEnd != "" {
		b.Cond = &Conditional{Start: condStart, End: condEnd}
	}

	b.Assets = StripComments(inner)
	b.Kind = KindScript
	if reStyle.MatchString(b.Assets) {
		b.Kind = KindStyle
	}

	return b
}

// StripComments removes conditional markers and HTML comments from html
func StripComments(html string) string {
	html = reCondStart.ReplaceAllString(html, "")
	html = reCondEnd.ReplaceAllString(html, "")
	return reComment.ReplaceAllString(html, "")
}
