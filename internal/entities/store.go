// Package entities provides cached access to NomCom metadata: positions,
// nominees, their position states, topics and person profiles.
package entities

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/jonathan/nomcom-feedback/internal/logger"
	"github.com/jonathan/nomcom-feedback/internal/runstate"
	"github.com/jonathan/nomcom-feedback/internal/store"
	"github.com/jonathan/nomcom-feedback/internal/types"
)

// Source fetches metadata from the Datatracker. *datatracker.Client implements it.
type Source interface {
	Positions(ctx context.Context) ([]types.Position, error)
	Nominees(ctx context.Context) ([]types.Nominee, error)
	NomineePositions(ctx context.Context) ([]types.NomineePositionState, error)
	Topics(ctx context.Context) ([]types.Topic, error)
	PersonIDByEmail(ctx context.Context, email string) (string, error)
	Person(ctx context.Context, personID string) (*types.PersonProfile, error)
	MeetingsAttended(ctx context.Context, personID string) (int, error)
	DocumentCounts(ctx context.Context, email string) (types.ActivityCounters, error)
}

// Store serves metadata from the artifact store, fetching from the Source on a
// miss or when forced.
type Store struct {
	src       Source
	artifacts store.Store
	log       logger.Logger
	group     singleflight.Group
}

// New creates an entity Store
func New(src Source, artifacts store.Store, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{src: src, artifacts: artifacts, log: log}
}

type emailArtifact struct {
	Email    string `json:"email"`
	PersonID string `json:"person_id"`
}

// load implements the read-through cache shared by every entity kind:
// memo, then artifact store, then fetch+persist. A key is forced at most once per run.
func load[T any](ctx context.Context, s *Store, rs *runstate.State, key store.Key, force bool, fetch func(context.Context) (T, error)) (T, error) {
	forced := rs.ShouldForce(key, force)

	v, err, _ := s.group.Do(runstate.FlightKey(key, forced), func() (any, error) {
		if !forced {
			if memo, ok := runstate.Lookup[T](rs, key); ok {
				return memo, nil
			}
			var cached T
			found, err := store.GetJSON(ctx, s.artifacts, key, &cached)
			if err != nil {
				return nil, err
			}
			if found {
				rs.SetMemo(key, cached)
				return cached, nil
			}
		}

		s.log.Info("fetching metadata", logger.String("key", key.String()), logger.Bool("forced", forced))
		fetched, err := fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", key.String(), err)
		}
		if err := store.PutJSON(ctx, s.artifacts, key, fetched); err != nil {
			return nil, err
		}
		rs.SetMemo(key, fetched)
		return fetched, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Positions returns every position of the NomCom
func (s *Store) Positions(ctx context.Context, rs *runstate.State, force bool) ([]types.Position, error) {
	return load(ctx, s, rs, store.PositionsKey(), force, s.src.Positions)
}

// Nominees returns every nominee, active or not
func (s *Store) Nominees(ctx context.Context, rs *runstate.State, force bool) ([]types.Nominee, error) {
	return load(ctx, s, rs, store.NomineesKey(), force, s.src.Nominees)
}

// NomineePositionStates returns the nominee-position relation
func (s *Store) NomineePositionStates(ctx context.Context, rs *runstate.State, force bool) ([]types.NomineePositionState, error) {
	return load(ctx, s, rs, store.NomineePositionsKey(), force, s.src.NomineePositions)
}

// Topics returns the NomCom feedback topics
func (s *Store) Topics(ctx context.Context, rs *runstate.State, force bool) ([]types.Topic, error) {
	return load(ctx, s, rs, store.TopicsKey(), force, s.src.Topics)
}

// ResolvePersonIDByEmail maps an email address to a Datatracker person id
func (s *Store) ResolvePersonIDByEmail(ctx context.Context, rs *runstate.State, email string, force bool) (string, error) {
	a, err := load(ctx, s, rs, store.EmailKey(email), force, func(ctx context.Context) (emailArtifact, error) {
		id, err := s.src.PersonIDByEmail(ctx, email)
		return emailArtifact{Email: email, PersonID: id}, err
	})
	if err != nil {
		return "", err
	}
	return a.PersonID, nil
}

// PersonProfile returns a person with activity counters filled in. Documents
// are counted by the email the person was nominated under.
func (s *Store) PersonProfile(ctx context.Context, rs *runstate.State, personID, email string, force bool) (*types.PersonProfile, error) {
	p, err := load(ctx, s, rs, store.PersonKey(personID), force, func(ctx context.Context) (types.PersonProfile, error) {
		person, err := s.src.Person(ctx, personID)
		if err != nil {
			return types.PersonProfile{}, err
		}
		meetings, err := s.src.MeetingsAttended(ctx, personID)
		if err != nil {
			return types.PersonProfile{}, err
		}
		counters, err := s.src.DocumentCounts(ctx, email)
		if err != nil {
			return types.PersonProfile{}, err
		}
		counters.MeetingsAttended = meetings
		person.Counters = counters
		person.Email = email
		return *person, nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Nominee looks up a nominee by id
func (s *Store) Nominee(ctx context.Context, rs *runstate.State, nomineeID string, force bool) (*types.Nominee, error) {
	nominees, err := s.Nominees(ctx, rs, force)
	if err != nil {
		return nil, err
	}
	for i := range nominees {
		if nominees[i].ID == nomineeID {
			n := nominees[i]
			return &n, nil
		}
	}
	return nil, &NotFoundError{Kind: "nominee", ID: nomineeID}
}

// NomineeProfile resolves the person behind a nominee. The returned profile
// carries the nominee's email address.
func (s *Store) NomineeProfile(ctx context.Context, rs *runstate.State, nomineeID string, force bool) (*types.PersonProfile, error) {
	nominee, err := s.Nominee(ctx, rs, nomineeID, force)
	if err != nil {
		return nil, err
	}
	personID, err := s.ResolvePersonIDByEmail(ctx, rs, nominee.Email, force)
	if err != nil {
		return nil, err
	}
	return s.PersonProfile(ctx, rs, personID, nominee.Email, force)
}

// NomineeStates returns the nominee's state per position short name.
// Positions without a recorded state are unknown.
func (s *Store) NomineeStates(ctx context.Context, rs *runstate.State, nomineeID string, force bool) (map[string]types.PositionState, error) {
	nominee, err := s.Nominee(ctx, rs, nomineeID, force)
	if err != nil {
		return nil, err
	}
	return s.statesFor(ctx, rs, nominee, force)
}

func (s *Store) statesFor(ctx context.Context, rs *runstate.State, nominee *types.Nominee, force bool) (map[string]types.PositionState, error) {
	positions, err := s.Positions(ctx, rs, force)
	if err != nil {
		return nil, err
	}
	relation, err := s.NomineePositionStates(ctx, rs, force)
	if err != nil {
		return nil, err
	}

	byURI := make(map[string]string, len(positions))
	for _, p := range positions {
		byURI[p.ResourceURI] = p.ShortName
	}

	states := make(map[string]types.PositionState, len(nominee.PositionURIs))
	for _, uri := range nominee.PositionURIs {
		short, ok := byURI[uri]
		if !ok {
			s.log.Warn("nominee references unknown position",
				logger.String("nominee", nominee.ID), logger.String("position_uri", uri))
			continue
		}
		state := types.StateUnknown
		for _, np := range relation {
			if np.NomineeURI == nominee.ResourceURI && np.PositionURI == uri {
				state = np.State
				break
			}
		}
		states[short] = state
	}
	return states, nil
}

// ActiveNominees returns, in list order, the nominees that accepted at least one position
func (s *Store) ActiveNominees(ctx context.Context, rs *runstate.State, force bool) ([]types.Nominee, error) {
	nominees, err := s.Nominees(ctx, rs, force)
	if err != nil {
		return nil, err
	}
	var active []types.Nominee
	for i := range nominees {
		states, err := s.statesFor(ctx, rs, &nominees[i], force)
		if err != nil {
			return nil, err
		}
		if hasAccepted(states) {
			active = append(active, nominees[i])
		}
	}
	return active, nil
}

// NomineesByPosition groups active nominees under each position they accepted
func (s *Store) NomineesByPosition(ctx context.Context, rs *runstate.State, force bool) (map[string][]types.Nominee, error) {
	active, err := s.ActiveNominees(ctx, rs, force)
	if err != nil {
		return nil, err
	}
	byPosition := make(map[string][]types.Nominee)
	for i := range active {
		states, err := s.statesFor(ctx, rs, &active[i], force)
		if err != nil {
			return nil, err
		}
		for short, state := range states {
			if state == types.StateAccepted {
				byPosition[short] = append(byPosition[short], active[i])
			}
		}
	}
	return byPosition, nil
}

// AcceptedPositions returns the short names a nominee accepted, in position list order
func (s *Store) AcceptedPositions(ctx context.Context, rs *runstate.State, nomineeID string, force bool) ([]string, error) {
	states, err := s.NomineeStates(ctx, rs, nomineeID, force)
	if err != nil {
		return nil, err
	}
	positions, err := s.Positions(ctx, rs, force)
	if err != nil {
		return nil, err
	}
	var accepted []string
	for _, p := range positions {
		if states[p.ShortName] == types.StateAccepted {
			accepted = append(accepted, p.ShortName)
		}
	}
	return accepted, nil
}

// Position looks up a position by short name, case-insensitively
func (s *Store) Position(ctx context.Context, rs *runstate.State, shortName string, force bool) (*types.Position, error) {
	positions, err := s.Positions(ctx, rs, force)
	if err != nil {
		return nil, err
	}
	for i := range positions {
		if strings.EqualFold(positions[i].ShortName, shortName) {
			p := positions[i]
			return &p, nil
		}
	}
	return nil, &NotFoundError{Kind: "position", ID: shortName}
}

// ResolvePositionLabel maps a label from the feedback page (full or short name)
// to a position. ok is false when nothing matches.
func (s *Store) ResolvePositionLabel(ctx context.Context, rs *runstate.State, label string, force bool) (*types.Position, bool, error) {
	positions, err := s.Positions(ctx, rs, force)
	if err != nil {
		return nil, false, err
	}
	label = strings.Join(strings.Fields(label), " ")
	if label == "" {
		return nil, false, nil
	}
	for i := range positions {
		if strings.EqualFold(positions[i].FullName, label) || strings.EqualFold(positions[i].ShortName, label) {
			p := positions[i]
			return &p, true, nil
		}
	}
	return nil, false, nil
}

func hasAccepted(states map[string]types.PositionState) bool {
	for _, st := range states {
		if st == types.StateAccepted {
			return true
		}
	}
	return false
}
