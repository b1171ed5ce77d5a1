// Package feedback downloads nominee feedback pages and turns them into
// structured, position-grouped snapshots.
package feedback

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// commentPaneID is the pane holding community comments
	commentPaneID = "comment"
	// questionnairePanePrefix identifies the pane holding the nominee's own questionnaire answers
	questionnairePanePrefix = "questio"
)

// feedbackPane reports whether a tab pane holds feedback entries.
// Nomination and other panes are ignored.
func feedbackPane(id string) bool {
	return id == commentPaneID || strings.HasPrefix(id, questionnairePanePrefix)
}

var fromPattern = regexp.MustCompile(`^(.*?)\s*<([^>]+)>`)

// Entry is one feedback entry as it appears on the page, before position resolution
type Entry struct {
	Pane        string
	AuthorName  string
	AuthorEmail string
	Date        string
	Positions   []string
	Subject     string
	Text        string
}

// InQuestionnaire reports whether the entry came from the questionnaire pane
func (e Entry) InQuestionnaire() bool {
	return strings.HasPrefix(e.Pane, questionnairePanePrefix)
}

// SelfSubmitted reports whether the nominee wrote this entry about themselves
func (e Entry) SelfSubmitted(nomineeEmail string) bool {
	if e.InQuestionnaire() {
		return true
	}
	return nomineeEmail != "" && strings.EqualFold(strings.TrimSpace(e.AuthorEmail), strings.TrimSpace(nomineeEmail))
}

// SelfSubject returns the subject recorded for a self-submitted entry
func (e Entry) SelfSubject() string {
	if e.Subject != "" {
		return e.Subject
	}
	if e.InQuestionnaire() {
		return "Questionnaire response"
	}
	return "Self feedback"
}

// ParseMarkup extracts feedback entries from the comment and questionnaire
// panes of a Datatracker "view feedback" page, in document order. It is a pure
// function of its input.
func ParseMarkup(markup []byte) ([]Entry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, &ParseError{Message: "invalid HTML", Cause: err}
	}

	panes := doc.Find(`div[role="tabpanel"]`)
	if panes.Length() == 0 {
		return nil, &ParseError{Message: "no feedback panes found (expired session?)"}
	}

	var entries []Entry
	panes.Each(func(_ int, pane *goquery.Selection) {
		paneID, _ := pane.Attr("id")
		if !feedbackPane(paneID) {
			return
		}
		pane.Find("dl.row").Each(func(_ int, dl *goquery.Selection) {
			entry := Entry{Pane: paneID}
			if parseEntry(dl, &entry) {
				entries = append(entries, entry)
			}
		})
	})
	return entries, nil
}

// parseEntry fills entry from the dt/dd pairs of one dl; it reports whether anything was found
func parseEntry(dl *goquery.Selection, entry *Entry) bool {
	found := false
	dl.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		dd := dt.NextFiltered("dd")
		if dd.Length() == 0 {
			return
		}
		switch strings.TrimSpace(dt.Text()) {
		case "From":
			entry.AuthorName, entry.AuthorEmail = parseFrom(dd)
		case "Date":
			entry.Date = strings.TrimSpace(dd.Text())
		case "Positions", "Position":
			entry.Positions = parseLines(dd)
		case "Subject":
			entry.Subject = strings.TrimSpace(dd.Text())
		case "Feedback":
			if pre := dd.Find("pre"); pre.Length() > 0 {
				entry.Text = strings.TrimSpace(pre.Text())
			} else {
				entry.Text = strings.TrimSpace(dd.Text())
			}
		default:
			return
		}
		found = true
	})
	return found
}

// parseFrom handles both "Name <email>" text and a name followed by a mailto link
func parseFrom(dd *goquery.Selection) (name, email string) {
	text := dd.Text()
	if m := fromPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}

	if link := dd.Find(`a[href^="mailto:"]`).First(); link.Length() > 0 {
		email = strings.TrimSpace(link.Text())
		if email == "" {
			href, _ := link.Attr("href")
			email = strings.TrimPrefix(href, "mailto:")
		}
	}
	if first := dd.Contents().First(); first.Length() > 0 && goquery.NodeName(first) == "#text" {
		name = strings.TrimSpace(strings.ReplaceAll(first.Text(), "<", ""))
	} else {
		name = strings.TrimSpace(strings.Replace(text, email, "", 1))
	}
	return name, email
}

// parseLines returns the non-empty lines of a dd, treating <br> and list items as line breaks
func parseLines(dd *goquery.Selection) []string {
	var raw string
	if items := dd.Find("li"); items.Length() > 0 {
		raw = strings.Join(items.Map(func(_ int, li *goquery.Selection) string { return li.Text() }), "\n")
	} else {
		clone := dd.Clone()
		clone.Find("br").ReplaceWithHtml("\n")
		raw = clone.Text()
	}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
