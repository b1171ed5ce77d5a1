// Package dttest provides an in-memory fake Datatracker for tests.
package dttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Position is a fake position
type Position struct {
	ID             int
	Name           string
	IsIESGPosition bool
}

// Nominee is a fake nominee. States maps position id to a state name
// (accepted, declined, pending).
type Nominee struct {
	ID       int
	PersonID int
	Name     string
	Email    string
	States   map[int]string
	Meetings int
	// Documents are document names such as "rfc9000" or "draft-ietf-quic-x"
	Documents []string
	// FeedbackHTML is served for the private feedback page
	FeedbackHTML string
}

// Server is a fake Datatracker. It counts requests per path.
type Server struct {
	*httptest.Server

	NomcomID  string
	Year      string
	Positions []Position
	Nominees  []Nominee
	Topics    []string
	// Session is the expected session cookie; empty accepts any
	Session string

	mu     sync.Mutex
	counts map[string]int
}

// New starts a fake server. Close it when done.
func New(nomcomID, year string) *Server {
	s := &Server{NomcomID: nomcomID, Year: year, counts: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Hits returns how many requests were made for a path (without query)
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[path]
}

// TotalHits returns the number of requests served
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

// ResetHits clears request counters
func (s *Server) ResetHits() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = make(map[string]int)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.counts[r.URL.Path]++
	s.mu.Unlock()

	path := r.URL.Path
	q := r.URL.Query()
	switch {
	case path == "/api/v1/nomcom/position/":
		var objs []any
		for _, p := range s.Positions {
			objs = append(objs, map[string]any{
				"id": p.ID, "name": p.Name, "is_iesg_position": p.IsIESGPosition,
				"resource_uri": positionURI(p.ID),
			})
		}
		writeList(w, objs, len(objs))
	case path == "/api/v1/nomcom/nominee/":
		var objs []any
		for _, n := range s.Nominees {
			var nps []string
			for _, p := range s.Positions {
				if _, ok := n.States[p.ID]; ok {
					nps = append(nps, positionURI(p.ID))
				}
			}
			objs = append(objs, map[string]any{
				"id": n.ID, "email": "/api/v1/person/email/" + n.Email + "/",
				"nominee_position": nps, "resource_uri": nomineeURI(n.ID),
			})
		}
		writeList(w, objs, len(objs))
	case path == "/api/v1/nomcom/nomineeposition/":
		var objs []any
		for _, n := range s.Nominees {
			for _, p := range s.Positions {
				if st, ok := n.States[p.ID]; ok {
					objs = append(objs, map[string]any{
						"nominee": nomineeURI(n.ID), "position": positionURI(p.ID),
						"state": "/api/v1/name/nomineepositionstatename/" + st + "/",
					})
				}
			}
		}
		writeList(w, objs, len(objs))
	case path == "/api/v1/nomcom/topic/":
		var objs []any
		for i, t := range s.Topics {
			objs = append(objs, map[string]any{"id": i + 1, "subject": t})
		}
		writeList(w, objs, len(objs))
	case strings.HasPrefix(path, "/api/v1/person/email/"):
		email := strings.TrimSuffix(strings.TrimPrefix(path, "/api/v1/person/email/"), "/")
		for _, n := range s.Nominees {
			if n.Email == email {
				writeJSON(w, map[string]any{"address": email, "person": fmt.Sprintf("/api/v1/person/person/%d/", n.PersonID)})
				return
			}
		}
		http.NotFound(w, r)
	case strings.HasPrefix(path, "/api/v1/person/person/"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/api/v1/person/person/"), "/")
		if n, ok := s.byPerson(id); ok {
			writeJSON(w, map[string]any{"id": n.PersonID, "name": n.Name, "photo": "", "photo_thumb": ""})
			return
		}
		http.NotFound(w, r)
	case path == "/api/v1/meeting/attended/":
		if n, ok := s.byPerson(q.Get("person")); ok {
			writeList(w, nil, n.Meetings)
			return
		}
		writeList(w, nil, 0)
	case path == "/api/v1/doc/documentauthor/":
		var objs []any
		if n, ok := s.byEmail(q.Get("email")); ok {
			for _, d := range n.Documents {
				objs = append(objs, map[string]any{"document": "/api/v1/doc/document/" + d + "/"})
			}
		}
		writeList(w, objs, len(objs))
	case strings.HasPrefix(path, "/nomcom/"+s.Year+"/private/view-feedback/nominee/"):
		if s.Session != "" {
			ck, err := r.Cookie("sessionid")
			if err != nil || ck.Value != s.Session {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}
		id := strings.TrimPrefix(path, "/nomcom/"+s.Year+"/private/view-feedback/nominee/")
		for _, n := range s.Nominees {
			if fmt.Sprint(n.ID) == id {
				w.Header().Set("Content-Type", "text/html")
				_, _ = w.Write([]byte(n.FeedbackHTML))
				return
			}
		}
		http.NotFound(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) byPerson(id string) (Nominee, bool) {
	for _, n := range s.Nominees {
		if fmt.Sprint(n.PersonID) == id {
			return n, true
		}
	}
	return Nominee{}, false
}

func (s *Server) byEmail(email string) (Nominee, bool) {
	for _, n := range s.Nominees {
		if email != "" && n.Email == email {
			return n, true
		}
	}
	return Nominee{}, false
}

func positionURI(id int) string { return fmt.Sprintf("/api/v1/nomcom/position/%d/", id) }
func nomineeURI(id int) string  { return fmt.Sprintf("/api/v1/nomcom/nominee/%d/", id) }

func writeList(w http.ResponseWriter, objs []any, total int) {
	if objs == nil {
		objs = []any{}
	}
	writeJSON(w, map[string]any{"meta": map[string]any{"total_count": total}, "objects": objs})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
