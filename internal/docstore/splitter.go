package docstore

import (
	"strings"

	"github.com/atelier-labs/docent/internal/domain"
)

// Splitter turns raw document text into chunks. Heading markers take
// precedence so section boundaries survive; anything still larger than
// ChunkSize falls back to a sliding window with overlap.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

type section struct {
	title string
	body  string
}

// Split produces the ordered chunk list for one source document.
// Empty sections are dropped; the sequence index is stable across runs.
func (sp Splitter) Split(text, source string) []domain.Chunk {
	var chunks []domain.Chunk
	seq := 0

	for _, sec := range splitHeadings(text) {
		body := strings.TrimSpace(sec.body)
		if body == "" {
			continue
		}
		for _, window := range sp.windows(body) {
			chunk, err := domain.NewChunk(window, source, sec.title, seq)
			if err != nil {
				continue
			}
			chunks = append(chunks, chunk)
			seq++
		}
	}
	return chunks
}

// splitHeadings splits on markdown-style heading lines (#, ##, ###).
// Text before the first heading becomes an untitled leading section.
// A document without headings comes back as a single untitled section.
func splitHeadings(text string) []section {
	lines := strings.Split(text, "\n")

	var sections []section
	current := section{}
	var body strings.Builder

	flush := func() {
		current.body = body.String()
		if strings.TrimSpace(current.body) != "" || current.title != "" {
			sections = append(sections, current)
		}
		body.Reset()
	}

	for _, line := range lines {
		if title, ok := headingTitle(line); ok {
			flush()
			current = section{title: title}
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	if len(sections) == 0 {
		return []section{{body: text}}
	}
	return sections
}

// headingTitle reports whether the line is a markdown heading (up to ###)
// and returns its trimmed title text.
func headingTitle(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 3 {
		return "", false
	}
	rest := trimmed[level:]
	if rest != "" && !strings.HasPrefix(rest, " ") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// windows slices body into pieces of at most ChunkSize characters with
// Overlap characters carried between consecutive pieces. Cuts prefer the
// last whitespace before the limit so words stay intact.
func (sp Splitter) windows(body string) []string {
	size := sp.ChunkSize
	if size <= 0 {
		size = 900
	}
	overlap := sp.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	if len(body) <= size {
		return []string{body}
	}

	var out []string
	start := 0
	for start < len(body) {
		end := start + size
		if end >= len(body) {
			piece := strings.TrimSpace(body[start:])
			if piece != "" {
				out = append(out, piece)
			}
			break
		}
		cut := strings.LastIndexAny(body[start:end], " \t\n")
		if cut <= 0 {
			cut = size
		}
		piece := strings.TrimSpace(body[start : start+cut])
		if piece != "" {
			out = append(out, piece)
		}
		next := start + cut - overlap
		if next <= start {
			next = start + cut
		}
		start = next
	}
	return out
}
