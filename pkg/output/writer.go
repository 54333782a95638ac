// Package output serializes stage results to content files and rendered
// documents, routed to per-profile destination directories.
package output

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Metadata is the header block written at the top of every content file.
type Metadata struct {
	Title    string
	Type     string
	Profile  string
	Stage    string
	Duration string
	Speakers []string
}

// File is one artifact produced by the writer.
type File struct {
	Path  string
	Kind  string // markdown, docx, html
	Stage string
}

var (
	unsafeChars     = regexp.MustCompile(`[^\w\s-]`)
	multiSpace      = regexp.MustCompile(`\s+`)
	timestampPrefix = regexp.MustCompile(`^(\d{8}_\d{6}[_-]?|\d{4}-\d{2}-\d{2}-\d{2}-\d{2}-\d{2}-?)`)
)

// Writer produces markdown files under <dir>/transcripts and rendered
// documents under <dir>/docs, optionally inside a per-profile subdirectory.
type Writer struct {
	transcriptsDir string
	docsDir        string

	pandocChecked   bool
	pandocAvailable bool
}

// NewWriter creates the writer and its directory layout.
func NewWriter(outputDir string) (*Writer, error) {
	w := &Writer{
		transcriptsDir: filepath.Join(outputDir, "transcripts"),
		docsDir:        filepath.Join(outputDir, "docs"),
	}
	for _, dir := range []string{w.transcriptsDir, w.docsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	return w, nil
}

// DocsDir returns the docs directory, creating a subdirectory when one is
// requested by a profile's routing config.
func (w *Writer) DocsDir(subdir string) (string, error) {
	if subdir == "" {
		return w.docsDir, nil
	}
	dir := filepath.Join(w.docsDir, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// WriteStage writes one pipeline stage's output: a markdown file with the
// header block, plus a rendered document when requested. Render failures are
// non-fatal; the markdown is the primary artifact.
func (w *Writer) WriteStage(content, filenameBase, suffix string, meta Metadata, renderDoc bool, docsDir string) ([]File, error) {
	if docsDir == "" {
		docsDir = w.docsDir
	}

	mdPath := filepath.Join(w.transcriptsDir, deriveFilename(filenameBase, suffix, ".md"))
	body := renderMarkdown(content, meta)
	if err := os.WriteFile(mdPath, []byte(body), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write markdown: %w", err)
	}
	files := []File{{Path: mdPath, Kind: "markdown", Stage: meta.Stage}}

	if renderDoc {
		if doc, ok := w.renderDocument(mdPath, content, filenameBase, suffix, docsDir, meta); ok {
			files = append(files, doc)
		}
	}
	return files, nil
}

// renderDocument tries pandoc first, then falls back to a plain HTML file
// that word processors can open.
func (w *Writer) renderDocument(mdPath, content, filenameBase, suffix, docsDir string, meta Metadata) (File, bool) {
	if w.hasPandoc() {
		docxPath := filepath.Join(docsDir, deriveFilename(filenameBase, suffix, ".docx"))
		if err := runPandoc(mdPath, docxPath); err == nil {
			return File{Path: docxPath, Kind: "docx", Stage: meta.Stage}, true
		} else {
			slog.Warn("Pandoc render failed, falling back to HTML", "file", mdPath, "error", err)
		}
	}

	htmlPath := filepath.Join(docsDir, deriveFilename(filenameBase, suffix, ".html"))
	title := meta.Title
	if title == "" {
		title = DeriveTitle(filenameBase, suffix)
	}
	if err := os.WriteFile(htmlPath, []byte(renderHTML(content, title)), 0o644); err != nil {
		slog.Warn("Document render failed", "file", htmlPath, "error", err)
		return File{}, false
	}
	return File{Path: htmlPath, Kind: "html", Stage: meta.Stage}, true
}

func (w *Writer) hasPandoc() bool {
	if !w.pandocChecked {
		w.pandocChecked = true
		_, err := exec.LookPath("pandoc")
		w.pandocAvailable = err == nil
	}
	return w.pandocAvailable
}

func runPandoc(mdPath, docxPath string) error {
	cmd := exec.Command("pandoc", mdPath, "-o", docxPath, "-f", "markdown", "-t", "docx")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pandoc: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// renderMarkdown prepends the header metadata block to the content.
func renderMarkdown(content string, meta Metadata) string {
	var b strings.Builder
	b.WriteString("---\n")
	if meta.Title != "" {
		fmt.Fprintf(&b, "title: %q\n", meta.Title)
	}
	fmt.Fprintf(&b, "date: %s\n", time.Now().Format("2006-01-02"))
	if meta.Stage != "" {
		fmt.Fprintf(&b, "stage: %s\n", meta.Stage)
	}
	if meta.Type != "" {
		fmt.Fprintf(&b, "type: %s\n", meta.Type)
	}
	if meta.Profile != "" {
		fmt.Fprintf(&b, "profile: %s\n", meta.Profile)
	}
	if meta.Duration != "" {
		fmt.Fprintf(&b, "duration: %s\n", meta.Duration)
	}
	if len(meta.Speakers) > 0 {
		fmt.Fprintf(&b, "speakers: %s\n", strings.Join(meta.Speakers, ", "))
	}
	b.WriteString("---\n\n")
	b.WriteString(content)
	return b.String()
}

func renderHTML(content, title string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&b, "<meta charset=\"utf-8\">\n<title>%s</title>\n", htmlEscape(title))
	b.WriteString("</head>\n<body>\n")
	fmt.Fprintf(&b, "<h1>%s</h1>\n<pre>%s</pre>\n", htmlEscape(title), htmlEscape(content))
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// SafeBase sanitizes a filename stem: special characters stripped,
// whitespace collapsed to underscores. Output files for a given source all
// share this stem, which is how the API matches them back to a job.
func SafeBase(base string) string {
	return strings.ReplaceAll(strings.TrimSpace(unsafeChars.ReplaceAllString(base, "")), " ", "_")
}

// deriveFilename builds a safe filename from a base, an optional stage
// suffix, and an extension.
func deriveFilename(base, suffix, ext string) string {
	safe := SafeBase(base)
	if suffix != "" {
		return safe + "_" + strings.TrimLeft(suffix, "_") + ext
	}
	return safe + ext
}

// DeriveTitle turns a raw filename base into a display title: timestamp
// prefixes stripped, separators spaced, words capitalized, stage suffix as
// a parenthesized subtitle.
func DeriveTitle(filenameBase, suffix string) string {
	name := timestampPrefix.ReplaceAllString(filenameBase, "")
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	name = multiSpace.ReplaceAllString(strings.TrimSpace(name), " ")

	words := strings.Fields(name)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	title := strings.Join(words, " ")

	if suffix != "" {
		stage := strings.ReplaceAll(strings.TrimLeft(suffix, "_"), "_", " ")
		stageWords := strings.Fields(stage)
		for i, word := range stageWords {
			stageWords[i] = strings.ToUpper(word[:1]) + word[1:]
		}
		title = fmt.Sprintf("%s (%s)", title, strings.Join(stageWords, " "))
	}
	return title
}

// NoteTitle prefixes the derived title with the note type when the title
// does not already mention it.
func NoteTitle(filename, noteType string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	title := DeriveTitle(base, "")
	if !strings.Contains(strings.ToLower(title), strings.ToLower(noteType)) {
		cap := strings.ToUpper(noteType[:1]) + noteType[1:]
		title = cap + ": " + title
	}
	return title
}
