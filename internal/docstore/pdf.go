package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// showTextOp matches the argument of PDF text-showing operators:
// "(string) Tj" and "[(a) -12 (b)] TJ" array elements.
var showTextOp = regexp.MustCompile(`\(((?:\\.|[^\\()])*)\)\s*(?:Tj|'|")|\(((?:\\.|[^\\()])*)\)`)

var pdfEscapes = strings.NewReplacer(
	`\(`, "(",
	`\)`, ")",
	`\\`, `\`,
	`\n`, "\n",
	`\r`, "",
	`\t`, " ",
)

// loadPDF extracts text content from a PDF using pdfcpu. Page content
// streams are extracted to a scratch directory and the text-showing
// operators are collected in page order.
func loadPDF(path string) (string, error) {
	if _, err := api.ReadContextFile(path); err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	outDir, err := os.MkdirTemp("", "docent-pdf-*")
	if err != nil {
		return "", fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("extract pdf content: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("read scratch dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool { return pageNumber(names[i]) < pageNumber(names[j]) })

	var builder strings.Builder
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			continue
		}
		page := contentStreamText(string(content))
		if page == "" {
			continue
		}
		builder.WriteString(page)
		builder.WriteString("\n\n")
	}

	return builder.String(), nil
}

// pageNumber pulls the page index out of pdfcpu's "<base>_Content_page_N.txt"
// extraction filenames; unknown names sort last.
func pageNumber(name string) int {
	var n int
	idx := strings.LastIndex(name, "page_")
	if idx < 0 {
		return 1 << 30
	}
	if _, err := fmt.Sscanf(name[idx:], "page_%d", &n); err != nil {
		return 1 << 30
	}
	return n
}

// contentStreamText recovers the literal strings shown on a page.
func contentStreamText(stream string) string {
	var parts []string
	for _, m := range showTextOp.FindAllStringSubmatch(stream, -1) {
		lit := m[1]
		if lit == "" {
			lit = m[2]
		}
		lit = pdfEscapes.Replace(lit)
		if strings.TrimSpace(lit) != "" {
			parts = append(parts, lit)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
