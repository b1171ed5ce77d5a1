package datatracker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonathan/nomcom-feedback/internal/types"
)

// listMeta is the tastypie paging block returned with every list endpoint
type listMeta struct {
	TotalCount int `json:"total_count"`
}

type listResponse[T any] struct {
	Meta    listMeta `json:"meta"`
	Objects []T      `json:"objects"`
}

type apiPosition struct {
	Name           string `json:"name"`
	IsIESGPosition bool   `json:"is_iesg_position"`
	ResourceURI    string `json:"resource_uri"`
}

type apiNominee struct {
	ID              int      `json:"id"`
	Email           string   `json:"email"`
	NomineePosition []string `json:"nominee_position"`
	ResourceURI     string   `json:"resource_uri"`
}

type apiNomineePosition struct {
	Nominee  string `json:"nominee"`
	Position string `json:"position"`
	State    string `json:"state"`
}

type apiTopic struct {
	ID      int    `json:"id"`
	Subject string `json:"subject"`
}

type apiEmail struct {
	Person string `json:"person"`
}

type apiPerson struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Photo      string `json:"photo"`
	PhotoThumb string `json:"photo_thumb"`
}

type apiDocumentAuthor struct {
	Document string `json:"document"`
}

func pageQuery(limit int, kv ...string) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	q.Set("limit", strconv.Itoa(limit))
	return q
}

// Positions lists the positions of the configured NomCom
func (c *Client) Positions(ctx context.Context) ([]types.Position, error) {
	var resp listResponse[apiPosition]
	if err := c.getJSON(ctx, "/api/v1/nomcom/position/", pageQuery(1000, "nomcom", c.nomcomID), &resp); err != nil {
		return nil, err
	}
	positions := make([]types.Position, 0, len(resp.Objects))
	for _, p := range resp.Objects {
		positions = append(positions, types.Position{
			ShortName:          types.PositionShortName(p.Name),
			FullName:           p.Name,
			IsPrimaryBoardSeat: p.IsIESGPosition,
			ResourceURI:        p.ResourceURI,
		})
	}
	return positions, nil
}

// Nominees lists every nominee of the configured NomCom.
// The raw API object is kept alongside the decoded fields.
func (c *Client) Nominees(ctx context.Context) ([]types.Nominee, error) {
	var resp listResponse[json.RawMessage]
	if err := c.getJSON(ctx, "/api/v1/nomcom/nominee/", pageQuery(1000, "nomcom", c.nomcomID), &resp); err != nil {
		return nil, err
	}
	nominees := make([]types.Nominee, 0, len(resp.Objects))
	for _, raw := range resp.Objects {
		var n apiNominee
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, &Error{URL: c.buildURL("/api/v1/nomcom/nominee/", nil), StatusCode: http.StatusOK, Message: "failed to decode nominee", Cause: err}
		}
		nominees = append(nominees, types.Nominee{
			ID:           strconv.Itoa(n.ID),
			Email:        types.LastPathSegment(n.Email),
			ResourceURI:  n.ResourceURI,
			PositionURIs: n.NomineePosition,
			Raw:          raw,
		})
	}
	return nominees, nil
}

// NomineePositions lists nominee-position states. The endpoint is not filtered
// by NomCom; callers match on nominee resource URIs.
func (c *Client) NomineePositions(ctx context.Context) ([]types.NomineePositionState, error) {
	var resp listResponse[apiNomineePosition]
	if err := c.getJSON(ctx, "/api/v1/nomcom/nomineeposition/", pageQuery(4000), &resp); err != nil {
		return nil, err
	}
	states := make([]types.NomineePositionState, 0, len(resp.Objects))
	for _, np := range resp.Objects {
		states = append(states, types.NomineePositionState{
			NomineeURI:  np.Nominee,
			PositionURI: np.Position,
			State:       types.ParsePositionState(np.State),
		})
	}
	return states, nil
}

// Topics lists the feedback topics of the configured NomCom
func (c *Client) Topics(ctx context.Context) ([]types.Topic, error) {
	var resp listResponse[apiTopic]
	if err := c.getJSON(ctx, "/api/v1/nomcom/topic/", pageQuery(1000, "nomcom", c.nomcomID), &resp); err != nil {
		return nil, err
	}
	topics := make([]types.Topic, 0, len(resp.Objects))
	for _, t := range resp.Objects {
		topics = append(topics, types.Topic{ID: t.ID, Subject: t.Subject})
	}
	return topics, nil
}

// PersonIDByEmail resolves the person id that owns an email address
func (c *Client) PersonIDByEmail(ctx context.Context, email string) (string, error) {
	var resp apiEmail
	path := "/api/v1/person/email/" + url.PathEscape(email) + "/"
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return "", err
	}
	id := types.LastPathSegment(resp.Person)
	if id == "" {
		return "", &Error{URL: c.buildURL(path, nil), StatusCode: http.StatusOK, Message: "email has no person"}
	}
	return id, nil
}

// Person fetches a person record. Counters are not populated here.
func (c *Client) Person(ctx context.Context, personID string) (*types.PersonProfile, error) {
	var p apiPerson
	if err := c.getJSON(ctx, "/api/v1/person/person/"+url.PathEscape(personID)+"/", nil, &p); err != nil {
		return nil, err
	}
	return &types.PersonProfile{
		ID:         strconv.Itoa(p.ID),
		Name:       p.Name,
		Photo:      p.Photo,
		PhotoThumb: p.PhotoThumb,
	}, nil
}

// MeetingsAttended returns how many meetings a person has attended
func (c *Client) MeetingsAttended(ctx context.Context, personID string) (int, error) {
	var resp listResponse[json.RawMessage]
	if err := c.getJSON(ctx, "/api/v1/meeting/attended/", pageQuery(1, "person", personID), &resp); err != nil {
		return 0, err
	}
	return resp.Meta.TotalCount, nil
}

// DocumentCounts classifies the documents authored under an email address into
// RFCs, working-group drafts and individual drafts.
func (c *Client) DocumentCounts(ctx context.Context, email string) (types.ActivityCounters, error) {
	var resp listResponse[apiDocumentAuthor]
	if err := c.getJSON(ctx, "/api/v1/doc/documentauthor/", pageQuery(1000, "email", email), &resp); err != nil {
		return types.ActivityCounters{}, err
	}
	counters := types.ActivityCounters{Documents: resp.Meta.TotalCount}
	for _, d := range resp.Objects {
		switch {
		case strings.HasPrefix(d.Document, "/api/v1/doc/document/rfc"):
			counters.RFCs++
		case strings.HasPrefix(d.Document, "/api/v1/doc/document/draft-ietf-"):
			counters.WGDrafts++
		case strings.HasPrefix(d.Document, "/api/v1/doc/document/draft-"):
			counters.IndividualDrafts++
		}
	}
	return counters, nil
}

// FeedbackPageURL returns the private feedback page URL for a nominee
func (c *Client) FeedbackPageURL(nomineeID string) string {
	return c.buildURL(fmt.Sprintf("/nomcom/%s/private/view-feedback/nominee/%s", url.PathEscape(c.nomcomYear), url.PathEscape(nomineeID)), nil)
}

// FeedbackPage downloads the private feedback page of a nominee.
// The session token is sent as the Datatracker session cookie.
func (c *Client) FeedbackPage(ctx context.Context, nomineeID, sessionToken string) ([]byte, error) {
	return c.get(ctx, c.FeedbackPageURL(nomineeID), &http.Cookie{Name: SessionCookie, Value: sessionToken})
}
