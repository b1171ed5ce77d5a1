package observability

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/nomcom-feedback/internal/pipeline"
	"github.com/jonathan/nomcom-feedback/internal/types"
)

func TestSortByActivity(t *testing.T) {
	rows := []NomineeRow{
		{NomineeID: "1", Profile: types.PersonProfile{Counters: types.ActivityCounters{MeetingsAttended: 2}}},
		{NomineeID: "2", Profile: types.PersonProfile{Counters: types.ActivityCounters{MeetingsAttended: 10, Documents: 5}}},
		{NomineeID: "3", Profile: types.PersonProfile{Counters: types.ActivityCounters{Documents: 2}}},
	}

	SortByActivity(rows)

	assert.Equal(t, "2", rows[0].NomineeID)
	assert.Equal(t, "1", rows[1].NomineeID, "ties keep input order")
	assert.Equal(t, "3", rows[2].NomineeID)
}

func TestPrintNominees(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintNominees([]NomineeRow{{
		NomineeID: "42",
		Profile: types.PersonProfile{
			Name:     "Ada Lovelace",
			Email:    "ada@example.com",
			Counters: types.ActivityCounters{MeetingsAttended: 30, Documents: 4, RFCs: 1},
		},
		Positions: []string{"ART", "IAB"},
	}})
	output := buf.String()

	assert.Contains(t, output, "Ada Lovelace")
	assert.Contains(t, output, "ada@example.com")
	assert.Contains(t, output, "ART, IAB")
	assert.Contains(t, output, "30")
	assert.Contains(t, strings.ToUpper(output), "TOTAL")
}

func TestPrintPositions(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintPositions([]types.Position{
		{ShortName: "ART", FullName: "Applications and Real Time (ART) AD", IsPrimaryBoardSeat: true},
		{ShortName: "IAB", FullName: "Internet Architecture Board, Member"},
	})
	output := buf.String()

	assert.Contains(t, output, "Applications and Real Time (ART) AD")
	assert.Contains(t, output, "yes")
	assert.Contains(t, output, "no")
}

func TestPrintTopics(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintTopics([]types.Topic{{ID: 1, Subject: "Leadership"}, {ID: 2, Subject: "Diversity"}})

	assert.Equal(t, "Leadership\nDiversity\n", buf.String())
}

func TestPrintSnapshot(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSnapshot(&types.FeedbackSnapshot{
		NomineeID: "42",
		Person:    types.PersonProfile{Name: "Ada Lovelace"},
		FeedbackByPosition: map[string][]types.FeedbackRecord{
			"ART": {{Text: "a"}, {Text: "b", Subject: "Self"}},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "PARSED FEEDBACK")
	assert.Contains(t, output, "Ada Lovelace (42)")
	assert.Contains(t, output, "1 community, 1 self")
}

func TestPrintSnapshot_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSnapshot(nil)
	assert.Empty(t, buf.String())
}

func TestPrintRunSummary(t *testing.T) {
	res := &pipeline.Result{
		Target:           pipeline.All(),
		SummariesEnabled: true,
		NomineeSummaries: map[string]map[string]*types.Summary{
			"42": {"ART": {Kind: types.SummaryGenerated, Succeeded: true}},
			"43": {"IAB": {Kind: types.SummaryError}},
		},
		PositionSummaries: map[string]*types.Summary{},
	}
	for i := 0; i < 7; i++ {
		res.PositionSummaries[fmt.Sprintf("P%d", i)] = &types.Summary{Kind: types.SummaryError}
	}

	var buf bytes.Buffer
	NewPrinter(&buf).PrintRunSummary(res)
	output := buf.String()

	assert.Contains(t, output, "RUN SUMMARY")
	assert.Contains(t, output, "generated    1")
	assert.Contains(t, output, "error        8")
	assert.Contains(t, output, "43/IAB")
	assert.Contains(t, output, "... and 3 more")
}

func TestPrintRunSummary_Disabled(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRunSummary(&pipeline.Result{Target: pipeline.ForNominee("42")})

	assert.Contains(t, buf.String(), "Summaries disabled.")
	assert.Contains(t, buf.String(), "nominee 42")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 200))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}
