package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/nomcom-feedback/internal/observability"
	"github.com/jonathan/nomcom-feedback/internal/runstate"
	"github.com/jonathan/nomcom-feedback/internal/types"
)

type nomineesOptions struct {
	info          bool
	byPosition    bool
	forceMetadata bool
}

// nomineeDetail is the JSON printed by "nominees <id>"
type nomineeDetail struct {
	Nominee   *types.Nominee                 `json:"nominee"`
	Profile   *types.PersonProfile           `json:"person_profile"`
	Positions map[string]types.PositionState `json:"positions"`
}

func newNomineesCmd(root *rootOptions) *cobra.Command {
	opts := &nomineesOptions{}
	cmd := &cobra.Command{
		Use:   "nominees [id]",
		Short: "List active nominees or show one nominee",
		Long: `Without arguments, prints the active nominees (those who accepted at least
one position) as JSON. --info prints a table sorted by meetings attended plus
documents authored; --by-position prints active nominee ids grouped by position.
With an id, prints the nominee's profile and position states.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.info && opts.byPosition {
				return fmt.Errorf("--info and --by-position are mutually exclusive")
			}
			return runNomineesCmd(cmd, root, opts, args)
		},
	}
	cmd.Flags().BoolVar(&opts.info, "info", false, "Print an activity table of active nominees")
	cmd.Flags().BoolVar(&opts.byPosition, "by-position", false, "Print active nominee ids per position as JSON")
	cmd.Flags().BoolVarP(&opts.forceMetadata, "force-metadata", "m", false, "Refetch metadata")
	return cmd
}

func runNomineesCmd(cmd *cobra.Command, root *rootOptions, opts *nomineesOptions, args []string) error {
	ctx := commandContext(cmd)
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cmd, root, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	rs := runstate.New()
	force := opts.forceMetadata

	if len(args) == 1 {
		return a.printNominee(ctx, rs, args[0], force)
	}

	switch {
	case opts.info:
		return a.printNomineeInfo(ctx, rs, force)
	case opts.byPosition:
		byPosition, err := a.entities.NomineesByPosition(ctx, rs, force)
		if err != nil {
			return err
		}
		out := make(map[string][]string, len(byPosition))
		for pos, nominees := range byPosition {
			ids := make([]string, 0, len(nominees))
			for _, n := range nominees {
				ids = append(ids, n.ID)
			}
			out[pos] = ids
		}
		return writeJSON(a.out, out)
	default:
		active, err := a.entities.ActiveNominees(ctx, rs, force)
		if err != nil {
			return err
		}
		for i := range active {
			active[i].Raw = nil
		}
		return writeJSON(a.out, active)
	}
}

func (a *app) printNominee(ctx context.Context, rs *runstate.State, id string, force bool) error {
	nominee, err := a.entities.Nominee(ctx, rs, id, force)
	if err != nil {
		return err
	}
	profile, err := a.entities.NomineeProfile(ctx, rs, id, force)
	if err != nil {
		return err
	}
	states, err := a.entities.NomineeStates(ctx, rs, id, force)
	if err != nil {
		return err
	}
	n := *nominee
	n.Raw = nil
	return writeJSON(a.out, nomineeDetail{Nominee: &n, Profile: profile, Positions: states})
}

func (a *app) printNomineeInfo(ctx context.Context, rs *runstate.State, force bool) error {
	active, err := a.entities.ActiveNominees(ctx, rs, force)
	if err != nil {
		return err
	}
	rows := make([]observability.NomineeRow, 0, len(active))
	for _, n := range active {
		profile, err := a.entities.NomineeProfile(ctx, rs, n.ID, force)
		if err != nil {
			return err
		}
		accepted, err := a.entities.AcceptedPositions(ctx, rs, n.ID, force)
		if err != nil {
			return err
		}
		rows = append(rows, observability.NomineeRow{NomineeID: n.ID, Profile: *profile, Positions: accepted})
	}
	observability.SortByActivity(rows)
	a.printer.PrintNominees(rows)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
