package rendering

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/nomcom-feedback/internal/pipeline"
	"github.com/jonathan/nomcom-feedback/internal/summarize"
	"github.com/jonathan/nomcom-feedback/internal/types"
)

func sampleResult(target pipeline.Target) *pipeline.Result {
	ada := types.Nominee{ID: "42", Email: "ada@example.com"}
	grace := types.Nominee{ID: "43", Email: "grace@example.com"}
	return &pipeline.Result{
		Target: target,
		Positions: []types.Position{
			{ShortName: "ART", FullName: "Applications and Real Time (ART) AD"},
			{ShortName: "IAB", FullName: "Internet Architecture Board, Member"},
			{ShortName: "SEC", FullName: "Security (SEC) AD"},
		},
		Topics:             []types.Topic{{ID: 1, Subject: "Leadership"}},
		ActiveNominees:     []types.Nominee{ada, grace},
		NomineesByPosition: map[string][]types.Nominee{"ART": {ada}, "IAB": {ada, grace}},
		AcceptedPositions:  map[string][]string{"42": {"ART", "IAB"}, "43": {"IAB"}},
		Snapshots: map[string]*types.FeedbackSnapshot{
			"42": {
				NomineeID: "42",
				Person:    types.PersonProfile{Name: "Ada Lovelace"},
				FeedbackByPosition: map[string][]types.FeedbackRecord{
					"ART": {
						{AuthorName: "Bob <Builder>", AuthorEmail: "bob@example.com", Date: "2025-09-01", Text: "Great reviewer.\nShips."},
						{AuthorName: "Ada Lovelace", AuthorEmail: "ada@example.com", Text: "My plan.", Subject: "My priorities"},
					},
				},
			},
			"43": {NomineeID: "43", Person: types.PersonProfile{Name: "Grace Hopper"}},
		},
		SummariesEnabled: true,
		NomineeSummaries: map[string]map[string]*types.Summary{
			"42": {"ART": {Kind: types.SummaryGenerated, Text: "<p>Strong <em>reviewer</em>.</p>", Succeeded: true}},
		},
		PositionSummaries: map[string]*types.Summary{
			"SEC": {Kind: types.SummaryNoNominees, Text: summarize.NoNomineesHTML, Succeeded: true},
		},
	}
}

func pageMap(pages []Page) map[string]string {
	out := make(map[string]string, len(pages))
	for _, p := range pages {
		out[p.Path] = string(p.Content)
	}
	return out
}

func TestBuildSite_All(t *testing.T) {
	pages, err := BuildSite(sampleResult(pipeline.All()))
	require.NoError(t, err)
	site := pageMap(pages)

	assert.Len(t, site, 1+3+3, "index, three nominee pages, three position pages")

	art := site["nominees/42/ART.html"]
	require.NotEmpty(t, art)
	assert.Contains(t, art, "<h1>Summary for Ada Lovelace (ART):</h1>")
	assert.Contains(t, art, "<p>Strong <em>reviewer</em>.</p>", "summaries are embedded as HTML")
	assert.Contains(t, art, "<h1>All Feedback for Ada Lovelace (ART):</h1>")
	assert.Contains(t, art, "<b>Name:</b> Bob &lt;Builder&gt;<br>", "record fields are escaped")
	assert.Contains(t, art, "Great reviewer.<br>\nShips.")
	assert.Contains(t, art, "<h2>Self Feedback</h2>")
	assert.Contains(t, art, "<b>Subject:</b> My priorities<br>")
	assert.Contains(t, art, `href="../../index.html"`)

	// Pages exist even without community feedback
	iab := site["nominees/43/IAB.html"]
	require.NotEmpty(t, iab)
	assert.Contains(t, iab, "No community feedback has been received.")
	assert.NotContains(t, iab, "Self Feedback")
	assert.Contains(t, iab, missingSummary)

	sec := site["positions/SEC.html"]
	assert.Contains(t, sec, summarize.NoNomineesHTML)

	iabPos := site["positions/IAB.html"]
	assert.Contains(t, iabPos, `href="../nominees/43/IAB.html"`)

	index := site["index.html"]
	assert.Contains(t, index, `<a href="positions/ART.html">Applications and Real Time (ART) AD</a>`)
	assert.Contains(t, index, `<a href="nominees/42/ART.html">Ada Lovelace</a> (1 community, 1 self)`)
	assert.Contains(t, index, "<li>Leadership</li>")
}

func TestBuildSite_ForNominee(t *testing.T) {
	res := sampleResult(pipeline.ForNominee("42"))
	res.ActiveNominees = res.ActiveNominees[:1]

	pages, err := BuildSite(res)
	require.NoError(t, err)
	site := pageMap(pages)

	assert.Contains(t, site, "nominees/42/ART.html")
	assert.Contains(t, site, "nominees/42/IAB.html")
	assert.NotContains(t, site, "nominees/43/IAB.html")
	assert.NotContains(t, site, "positions/ART.html")
	assert.NotContains(t, site["index.html"], "Security (SEC) AD", "unrelated positions are left out")
}

func TestBuildSite_SummariesDisabled(t *testing.T) {
	res := sampleResult(pipeline.ForPosition("IAB"))
	res.SummariesEnabled = false
	res.NomineeSummaries = nil
	res.PositionSummaries = nil

	pages, err := BuildSite(res)
	require.NoError(t, err)
	site := pageMap(pages)

	assert.Contains(t, site["positions/IAB.html"], summarize.DisabledHTML)
	assert.NotContains(t, site, "positions/ART.html")
	assert.Contains(t, site["nominees/42/ART.html"], summarize.DisabledHTML)
}

func TestRender_WritesFiles(t *testing.T) {
	dir := t.TempDir()

	paths, err := Render(dir, sampleResult(pipeline.All()))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	content, err := os.ReadFile(filepath.Join(dir, "nominees", "42", "ART.html"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "Summary for Ada Lovelace (ART):")

	_, err = os.Stat(filepath.Join(dir, "index.html"))
	assert.NoError(t, err)
	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	assert.Empty(t, leftovers)
}

func TestWriteSite_Error(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "nominees")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := WriteSite(dir, []Page{{Path: "nominees/42/ART.html", Content: []byte("x")}})
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Contains(t, renderErr.Path, "ART.html")
}

func TestLines(t *testing.T) {
	assert.Equal(t, "a &amp; b<br>\nc", string(lines(" a & b\nc ")))
}
