// Package observability provides formatted output for the CLI: metadata
// tables and verbose run reports.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/jonathan/nomcom-feedback/internal/pipeline"
	"github.com/jonathan/nomcom-feedback/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for tables and verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func (p *Printer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleLight)
	return t
}

// NomineeRow is one line of the nominee info table
type NomineeRow struct {
	NomineeID string
	Profile   types.PersonProfile
	Positions []string
}

// SortByActivity orders rows by meetings plus documents, most active first.
// Ties keep their input order.
func SortByActivity(rows []NomineeRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Profile.Counters.Activity() > rows[j].Profile.Counters.Activity()
	})
}

// PrintNominees renders the nominee activity table with a total footer
func (p *Printer) PrintNominees(rows []NomineeRow) {
	t := p.newTable()
	t.AppendHeader(table.Row{"#", "ID", "Name", "Email", "Meetings", "Docs", "RFCs", "WG Drafts", "Ind. Drafts", "Positions"})
	for i, r := range rows {
		c := r.Profile.Counters
		t.AppendRow(table.Row{
			i + 1,
			r.NomineeID,
			r.Profile.Name,
			r.Profile.Email,
			c.MeetingsAttended,
			c.Documents,
			c.RFCs,
			c.WGDrafts,
			c.IndividualDrafts,
			strings.Join(r.Positions, ", "),
		})
	}
	t.AppendFooter(table.Row{"Total", len(rows)})
	t.Render()
}

// PrintPositions renders the position table
func (p *Printer) PrintPositions(positions []types.Position) {
	t := p.newTable()
	t.AppendHeader(table.Row{"Short Name", "Full Name", "Board Seat"})
	for _, pos := range positions {
		seat := "no"
		if pos.IsPrimaryBoardSeat {
			seat = "yes"
		}
		t.AppendRow(table.Row{pos.ShortName, pos.FullName, seat})
	}
	t.AppendFooter(table.Row{"Total", len(positions)})
	t.Render()
}

// PrintTopics prints one topic subject per line
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintTopics(topics []types.Topic) {
	for _, topic := range topics {
		fmt.Fprintln(p.out, topic.Subject)
	}
}

// PrintSnapshot outputs the record counts of a parsed feedback snapshot
func (p *Printer) PrintSnapshot(snapshot *types.FeedbackSnapshot) {
	if snapshot == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Nominee:  %s (%s)\n", snapshot.Person.Name, snapshot.NomineeID))
	sb.WriteString(fmt.Sprintf("Email:    %s\n", snapshot.Person.Email))

	positions := make([]string, 0, len(snapshot.FeedbackByPosition))
	for pos := range snapshot.FeedbackByPosition {
		positions = append(positions, pos)
	}
	sort.Strings(positions)
	if len(positions) == 0 {
		sb.WriteString("\nNo feedback records.")
	}
	for _, pos := range positions {
		sb.WriteString(fmt.Sprintf("\n%-8s %d community, %d self", pos,
			len(snapshot.Community(pos)), len(snapshot.Self(pos))))
	}

	p.printBox("PARSED FEEDBACK", sb.String())
}

// PrintRunSummary outputs what a run produced, with summary outcomes by kind
func (p *Printer) PrintRunSummary(res *pipeline.Result) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", res.RunID))
	sb.WriteString(fmt.Sprintf("Target:     %s\n", res.Target))
	sb.WriteString(fmt.Sprintf("Positions:  %d\n", len(res.Positions)))
	sb.WriteString(fmt.Sprintf("Nominees:   %d active\n", len(res.ActiveNominees)))
	sb.WriteString(fmt.Sprintf("Snapshots:  %d", len(res.Snapshots)))

	if !res.SummariesEnabled {
		sb.WriteString("\n\nSummaries disabled.")
		p.printBox("RUN SUMMARY", sb.String())
		return
	}

	kinds := make(map[types.SummaryKind]int)
	var failed []string
	for nomineeID, byPos := range res.NomineeSummaries {
		for pos, s := range byPos {
			kinds[s.Kind]++
			if !s.Succeeded {
				failed = append(failed, nomineeID+"/"+pos)
			}
		}
	}
	for pos, s := range res.PositionSummaries {
		kinds[s.Kind]++
		if !s.Succeeded {
			failed = append(failed, pos)
		}
	}

	sb.WriteString("\n\nSummaries:")
	for _, k := range []types.SummaryKind{types.SummaryGenerated, types.SummaryNoFeedback, types.SummaryNoNominees, types.SummaryError} {
		if kinds[k] > 0 {
			sb.WriteString(fmt.Sprintf("\n  %-12s %d", k, kinds[k]))
		}
	}

	if len(failed) > 0 {
		sort.Strings(failed)
		sb.WriteString("\n\nFailed (retried next run):")
		for i, f := range failed {
			if i >= maxItemsToShow {
				sb.WriteString(fmt.Sprintf("\n  ... and %d more", len(failed)-maxItemsToShow))
				break
			}
			sb.WriteString("\n  " + f)
		}
	}

	p.printBox("RUN SUMMARY", sb.String())
}
