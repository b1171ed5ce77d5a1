package rendering

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jonathan/nomcom-feedback/internal/pipeline"
	"github.com/jonathan/nomcom-feedback/internal/summarize"
	"github.com/jonathan/nomcom-feedback/internal/types"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	indexPage       = "index.html"
	missingSummary  = "<p>No summary is available for this run.</p>"
	defaultSiteName = "NomCom Feedback"
)

// Page is one rendered file, with Path relative to the output directory
type Page struct {
	Path    string
	Content []byte
}

type nomineeLink struct {
	Name      string
	Href      string
	Community int
	Self      int
}

type positionEntry struct {
	Position types.Position
	Linked   bool
	Href     string
	Nominees []nomineeLink
}

type indexData struct {
	Title     string
	Positions []positionEntry
	Topics    []types.Topic
}

type nomineeData struct {
	Title     string
	IndexHref string
	Name      string
	Position  types.Position
	Summary   template.HTML
	Community []types.FeedbackRecord
	Self      []types.FeedbackRecord
}

type positionData struct {
	Title     string
	IndexHref string
	Position  types.Position
	Summary   template.HTML
	Nominees  []nomineeLink
}

// NomineePagePath is where the page for a nominee and position is written
func NomineePagePath(nomineeID, position string) string {
	return path.Join("nominees", nomineeID, position+".html")
}

// PositionPagePath is where the page for a position is written
func PositionPagePath(position string) string {
	return path.Join("positions", position+".html")
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("pages").Funcs(template.FuncMap{"lines": lines}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, &TemplateError{Page: "templates", Message: "failed to parse templates", Cause: err}
	}
	return tmpl, nil
}

// lines escapes plain feedback text and keeps its line breaks
func lines(text string) template.HTML {
	escaped := template.HTMLEscapeString(strings.TrimSpace(text))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>\n"))
}

// BuildSite renders the pages for a run result without touching the filesystem.
// Every nominee and accepted position in the result gets a page, including
// those without community feedback. Position pages are built for every
// position of an All run and for the target of a position run.
func BuildSite(res *pipeline.Result) ([]Page, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	var pages []Page
	for _, n := range res.ActiveNominees {
		snapshot := res.Snapshots[n.ID]
		if snapshot == nil {
			continue
		}
		for _, short := range res.AcceptedPositions[n.ID] {
			pos := res.Position(short)
			if pos == nil {
				continue
			}
			name := nomineeName(res, n.ID)
			data := nomineeData{
				Title:     fmt.Sprintf("%s (%s)", name, pos.ShortName),
				IndexHref: "../../" + indexPage,
				Name:      name,
				Position:  *pos,
				Summary:   summaryHTML(res, res.NomineeSummary(n.ID, short)),
				Community: snapshot.Community(short),
				Self:      snapshot.Self(short),
			}
			page, err := execute(tmpl, "nominee", NomineePagePath(n.ID, short), data)
			if err != nil {
				return nil, err
			}
			pages = append(pages, page)
		}
	}

	for _, pos := range sitePositions(res) {
		data := positionData{
			Title:     fmt.Sprintf("%s (%s)", pos.FullName, pos.ShortName),
			IndexHref: "../" + indexPage,
			Position:  pos,
			Summary:   summaryHTML(res, res.PositionSummaries[pos.ShortName]),
			Nominees:  nomineeLinks(res, pos.ShortName, "../"),
		}
		page, err := execute(tmpl, "position", PositionPagePath(pos.ShortName), data)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	index, err := execute(tmpl, "index", indexPage, buildIndex(res))
	if err != nil {
		return nil, err
	}
	return append(pages, index), nil
}

func buildIndex(res *pipeline.Result) indexData {
	linked := make(map[string]bool)
	for _, p := range sitePositions(res) {
		linked[p.ShortName] = true
	}

	data := indexData{Title: defaultSiteName, Topics: res.Topics}
	for _, p := range res.Positions {
		nominees := nomineeLinks(res, p.ShortName, "")
		if res.Target.Kind != pipeline.TargetAll && len(nominees) == 0 && !linked[p.ShortName] {
			continue
		}
		data.Positions = append(data.Positions, positionEntry{
			Position: p,
			Linked:   linked[p.ShortName],
			Href:     PositionPagePath(p.ShortName),
			Nominees: nominees,
		})
	}
	return data
}

func sitePositions(res *pipeline.Result) []types.Position {
	switch res.Target.Kind {
	case pipeline.TargetAll:
		return res.Positions
	case pipeline.TargetPosition:
		var out []types.Position
		for _, p := range res.Positions {
			if strings.EqualFold(p.ShortName, res.Target.ID) {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

func nomineeLinks(res *pipeline.Result, position, prefix string) []nomineeLink {
	var links []nomineeLink
	for _, n := range res.NomineesByPosition[position] {
		link := nomineeLink{
			Name: nomineeName(res, n.ID),
			Href: prefix + NomineePagePath(n.ID, position),
		}
		if s := res.Snapshots[n.ID]; s != nil {
			link.Community = len(s.Community(position))
			link.Self = len(s.Self(position))
		}
		links = append(links, link)
	}
	return links
}

func nomineeName(res *pipeline.Result, nomineeID string) string {
	if s := res.Snapshots[nomineeID]; s != nil && s.Person.Name != "" {
		return s.Person.Name
	}
	return "Nominee " + nomineeID
}

// summaryHTML trusts summary text as HTML; summaries are produced by this
// program (placeholders, escaped error text or the backend's fragment).
func summaryHTML(res *pipeline.Result, s *types.Summary) template.HTML {
	switch {
	case s != nil:
		return template.HTML(s.Text)
	case !res.SummariesEnabled:
		return template.HTML(summarize.DisabledHTML)
	default:
		return template.HTML(missingSummary)
	}
}

func execute(tmpl *template.Template, name, pagePath string, data any) (Page, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return Page{}, &TemplateError{Page: pagePath, Message: "failed to execute template", Cause: err}
	}
	return Page{Path: pagePath, Content: buf.Bytes()}, nil
}

// WriteSite writes pages under dir. Each file is written to a temporary name
// and renamed into place.
func WriteSite(dir string, pages []Page) error {
	for _, p := range pages {
		target := filepath.Join(dir, filepath.FromSlash(p.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return &RenderError{Path: target, Message: "failed to create directory", Cause: err}
		}
		tmp := target + ".tmp"
		if err := os.WriteFile(tmp, p.Content, 0644); err != nil {
			return &RenderError{Path: target, Message: "failed to write page", Cause: err}
		}
		if err := os.Rename(tmp, target); err != nil {
			_ = os.Remove(tmp)
			return &RenderError{Path: target, Message: "failed to move page into place", Cause: err}
		}
	}
	return nil
}

// Render builds the site for res and writes it under dir, returning the written paths
func Render(dir string, res *pipeline.Result) ([]string, error) {
	pages, err := BuildSite(res)
	if err != nil {
		return nil, err
	}
	if err := WriteSite(dir, pages); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(pages))
	for _, p := range pages {
		paths = append(paths, filepath.Join(dir, filepath.FromSlash(p.Path)))
	}
	return paths, nil
}
