package template

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Fragment is one fenced code block together with the heading it appeared
// under and its position in the document.
type Fragment struct {
	Heading string // nearest preceding heading text, empty when none
	Body    string // block content, fence lines excluded, never mutated
	Index   int    // 0-based document order
}

// Document is a parsed template: optional front matter metadata plus the
// ordered code fragments found in the body.
type Document struct {
	Metadata  map[string]string
	Fragments []Fragment
}

// Line scanner states. Metadata handling runs before the fragment scan, so
// the scan itself only moves between seekingFence and insideFence.
type scanState int

const (
	seekingFence scanState = iota
	insideFence
	insideMetadata
)

const fenceMarker = "```"

// Parse splits a template into front matter metadata and code fragments.
// It never fails: malformed metadata (unterminated block, undecodable YAML)
// degrades to "no metadata" and the entire text is scanned for fragments,
// delimiter lines included.
func Parse(text string) *Document {
	doc := &Document{}
	if text == "" {
		return doc
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	body := lines
	if meta, rest, ok := extractMetadata(lines); ok {
		doc.Metadata = meta
		body = rest
	}

	doc.Fragments = scanFragments(body)
	return doc
}

// extractMetadata pulls a leading front matter block delimited by --- lines.
// The block only opens when the first line is exactly ---. Reports ok=false
// when there is no block or it cannot be parsed, in which case the caller
// scans everything.
func extractMetadata(lines []string) (map[string]string, []string, bool) {
	if len(lines) == 0 || lines[0] != "---" {
		return nil, nil, false
	}

	state := insideMetadata
	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			state = seekingFence
			break
		}
	}
	if state == insideMetadata {
		// Unterminated block: treat as no metadata.
		return nil, nil, false
	}

	var raw map[string]yaml.Node
	block := strings.Join(lines[1:end], "\n")
	if err := yaml.Unmarshal([]byte(block), &raw); err != nil {
		return nil, nil, false
	}

	meta := make(map[string]string, len(raw))
	for key, node := range raw {
		meta[key] = nodeString(&node)
	}
	return meta, lines[end+1:], true
}

// nodeString renders a YAML value node as a flat string. Scalars keep their
// literal text, anything structured is re-marshaled.
func nodeString(node *yaml.Node) string {
	if node.Kind == yaml.ScalarNode {
		return node.Value
	}
	out, err := yaml.Marshal(node)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// scanFragments walks the body line by line, tracking the most recent
// heading and collecting fenced blocks. A fence line is any line whose
// trimmed prefix is three backticks, so indented fences toggle state too;
// the opener may carry a language tag, which assembly ignores. Body lines
// are kept verbatim. An unterminated fence at end of document is discarded.
// Nested fences are undefined upstream: the scan is greedy, so the first
// fence line inside a block closes it.
func scanFragments(lines []string) []Fragment {
	state := seekingFence
	heading := ""
	owner := ""
	var current []string
	var frags []Fragment

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch state {
		case insideFence:
			if strings.HasPrefix(trimmed, fenceMarker) {
				frags = append(frags, Fragment{
					Heading: owner,
					Body:    strings.Join(current, "\n"),
					Index:   len(frags),
				})
				state = seekingFence
				continue
			}
			current = append(current, line)

		case seekingFence:
			if strings.HasPrefix(trimmed, fenceMarker) {
				state = insideFence
				owner = heading
				current = nil
				continue
			}
			if strings.HasPrefix(line, "#") {
				heading = strings.TrimSpace(strings.TrimLeft(line, "#"))
			}
		}
	}

	return frags
}

// importRelated reports whether a fragment belongs to the import bucket:
// its heading contains "import", case-insensitively.
func importRelated(f Fragment) bool {
	return strings.Contains(strings.ToLower(f.Heading), "import")
}

// Assemble concatenates fragment bodies into a single source text.
// Import-related fragments come first, then the rest in document order;
// the partition is stable on both sides. Each fragment is preceded by a
// comment line naming its heading (or its ordinal when it had none), and
// fragments are separated by one blank line. An empty document assembles
// to an empty string.
func (d *Document) Assemble() string {
	if len(d.Fragments) == 0 {
		return ""
	}

	ordered := make([]Fragment, len(d.Fragments))
	copy(ordered, d.Fragments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return sortKey(ordered[i]) < sortKey(ordered[j])
	})

	var b strings.Builder
	for i, f := range ordered {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("# ")
		b.WriteString(f.label())
		b.WriteString("\n")
		b.WriteString(f.Body)
	}
	return b.String()
}

func sortKey(f Fragment) int {
	if importRelated(f) {
		return 0
	}
	return 1
}

func (f Fragment) label() string {
	if f.Heading != "" {
		return f.Heading
	}
	return "Code block " + strconv.Itoa(f.Index+1)
}

// LoadSkeleton resolves a template path to source text ready to embed in a
// prompt. Markdown templates are parsed and assembled, .py files pass
// through raw, and a path without either extension tries .md then .py.
// A missing file, or a markdown template with no code fragments, falls
// back to the built-in skeleton.
func LoadSkeleton(path string, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}

	resolved := resolvePath(path)
	if resolved == "" {
		logger.Warn("template not found, using built-in skeleton", zap.String("path", path))
		return DefaultSkeleton
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		logger.Warn("reading template failed, using built-in skeleton",
			zap.String("path", resolved), zap.Error(err))
		return DefaultSkeleton
	}

	if strings.HasSuffix(resolved, ".md") {
		assembled := Parse(string(data)).Assemble()
		if assembled == "" {
			logger.Warn("template has no code fragments, using built-in skeleton",
				zap.String("path", resolved))
			return DefaultSkeleton
		}
		logger.Debug("assembled markdown template", zap.String("path", resolved))
		return assembled
	}

	logger.Debug("loaded template", zap.String("path", resolved))
	return string(data)
}

func resolvePath(path string) string {
	if path == "" {
		return ""
	}
	if fileExists(path) {
		return path
	}
	if strings.HasSuffix(path, ".md") || strings.HasSuffix(path, ".py") {
		return ""
	}
	for _, ext := range []string{".md", ".py"} {
		if fileExists(path + ext) {
			return path + ext
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
