package fstools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-go-golems/handoff/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
)

const DefaultDraftsDir = "drafts"

type WriteFileArgs struct {
	Path      string `json:"path" jsonschema:"description=File relative to the workspace root"`
	Content   string `json:"content" jsonschema:"description=Full file content"`
	Overwrite bool   `json:"overwrite,omitempty" jsonschema:"description=Replace the file if it already exists"`
}

type WriteFileResult struct {
	Path         string `json:"path" yaml:"path"`
	BytesWritten int    `json:"bytes_written" yaml:"bytes_written"`
}

type ComposeDraftArgs struct {
	To      []string `json:"to" jsonschema:"description=Recipients of the draft,minItems=1"`
	Subject string   `json:"subject" jsonschema:"description=Subject line"`
	Body    string   `json:"body" jsonschema:"description=Markdown body"`
}

type ComposeDraftResult struct {
	Markdown   string   `json:"markdown" yaml:"markdown"`
	HTML       string   `json:"html" yaml:"html"`
	Recipients []string `json:"recipients" yaml:"recipients"`
}

// Drafts writes drafts below a directory of the workspace.
type Drafts struct {
	ws  *Workspace
	dir string
}

func NewDrafts(ws *Workspace, dir string) (*Drafts, error) {
	if dir == "" {
		dir = DefaultDraftsDir
	}
	c, err := clean(dir)
	if err != nil {
		return nil, err
	}
	return &Drafts{ws: ws, dir: c}, nil
}

func (w *Workspace) writeFile(p string, content []byte, overwrite bool) (int, error) {
	if err := w.mkdirAll(filepath.Dir(p)); err != nil {
		return 0, err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := w.root.OpenFile(p, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return 0, errors.Errorf("%s already exists, set overwrite to replace it", p)
		}
		return 0, errors.Wrapf(err, "open %s", p)
	}
	n, err := f.Write(content)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if n > 0 {
			return n, &tools.PartialEffectError{
				Effect: fmt.Sprintf("%d of %d bytes written to %s", n, len(content), p),
				Err:    err,
			}
		}
		return n, errors.Wrapf(err, "write %s", p)
	}
	return n, nil
}

func (w *Workspace) WriteFile(_ context.Context, args WriteFileArgs) (any, error) {
	p, err := clean(args.Path)
	if err != nil {
		return nil, err
	}
	if p == "." {
		return nil, errors.New("path must name a file")
	}
	n, err := w.writeFile(p, []byte(args.Content), args.Overwrite)
	if err != nil {
		return nil, err
	}
	return WriteFileResult{Path: p, BytesWritten: n}, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	if slug == "" {
		return "draft"
	}
	return slug
}

func (d *Drafts) freeSlug(subject string) string {
	base := slugify(subject)
	slug := base
	for i := 2; d.ws.exists(filepath.Join(d.dir, slug+".md")); i++ {
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return slug
}

func (d *Drafts) Compose(_ context.Context, args ComposeDraftArgs) (any, error) {
	if len(args.To) == 0 {
		return nil, errors.New("a draft needs at least one recipient")
	}
	slug := d.freeSlug(args.Subject)
	mdPath := filepath.Join(d.dir, slug+".md")
	htmlPath := filepath.Join(d.dir, slug+".html")

	var md bytes.Buffer
	fmt.Fprintf(&md, "To: %s\nSubject: %s\n\n%s\n", strings.Join(args.To, ", "), args.Subject, args.Body)
	if _, err := d.ws.writeFile(mdPath, md.Bytes(), false); err != nil {
		return nil, err
	}

	var html bytes.Buffer
	fmt.Fprintf(&html, "<p><strong>To:</strong> %s<br/><strong>Subject:</strong> %s</p>\n",
		escape(strings.Join(args.To, ", ")), escape(args.Subject))
	if err := goldmark.Convert([]byte(args.Body), &html); err != nil {
		return nil, &tools.PartialEffectError{Effect: "markdown draft written to " + mdPath, Err: errors.Wrap(err, "render html")}
	}
	if _, err := d.ws.writeFile(htmlPath, html.Bytes(), false); err != nil {
		return nil, &tools.PartialEffectError{Effect: "markdown draft written to " + mdPath, Err: err}
	}

	return ComposeDraftResult{Markdown: mdPath, HTML: htmlPath, Recipients: args.To}, nil
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escape(s string) string {
	return htmlEscaper.Replace(s)
}

// SideEffectingTools returns the tools only the executor may use.
func SideEffectingTools(w *Workspace, d *Drafts) ([]*tools.Tool, error) {
	write, err := tools.New("write_file",
		"Write a file in the workspace. Existing files are kept unless overwrite is true.",
		tools.SideEffecting, w.WriteFile)
	if err != nil {
		return nil, err
	}
	compose, err := tools.New("compose_draft",
		"Compose a message draft. Saves a markdown and an HTML rendering under the drafts directory.",
		tools.SideEffecting, d.Compose)
	if err != nil {
		return nil, err
	}
	return []*tools.Tool{write, compose}, nil
}

// NewPlannerRegistry holds only the read-only workspace tools.
func NewPlannerRegistry(w *Workspace) (*tools.Registry, error) {
	ro, err := ReadOnlyTools(w)
	if err != nil {
		return nil, err
	}
	return tools.NewReadOnlyRegistry(ro...)
}

// NewExecutorRegistry holds the read-only tools followed by the
// side-effecting ones.
func NewExecutorRegistry(w *Workspace, d *Drafts) (*tools.Registry, error) {
	ro, err := ReadOnlyTools(w)
	if err != nil {
		return nil, err
	}
	rw, err := SideEffectingTools(w, d)
	if err != nil {
		return nil, err
	}
	return tools.NewRegistry(append(ro, rw...)...)
}
