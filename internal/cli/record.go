package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ledger/internal/engine"
	"github.com/roach88/ledger/internal/ledger"
	"github.com/roach88/ledger/internal/store"
)

// RecordView is the output form of a record. Byte fields are shown as
// strings.
type RecordView struct {
	ID          uint64 `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Amount      uint64 `json:"amount"`
	Date        string `json:"date"`
	Category    string `json:"category"`
}

func newRecordView(r ledger.Record) RecordView {
	return RecordView{
		ID:          uint64(r.ID),
		Title:       string(r.Title),
		Description: string(r.Description),
		Amount:      r.Amount,
		Date:        string(r.Date),
		Category:    r.Category.String(),
	}
}

func (v RecordView) String() string {
	return fmt.Sprintf("%d\t%s\t%s\t%d\t%s\t%s", v.ID, v.Date, v.Category, v.Amount, v.Title, v.Description)
}

// RecordList is the output of list.
type RecordList struct {
	Records []RecordView `json:"records"`
	NextID  uint64       `json:"next_id"`
}

func (l RecordList) String() string {
	if len(l.Records) == 0 {
		return "No records."
	}
	lines := make([]string, len(l.Records))
	for i, r := range l.Records {
		lines[i] = r.String()
	}
	return strings.Join(lines, "\n")
}

// MutationView is the output of a successful create, update or delete.
type MutationView struct {
	RequestID string `json:"request_id"`
	Seq       int64  `json:"seq"`
	ID        uint64 `json:"id"`
	Event     string `json:"event"`
}

func (v MutationView) String() string {
	return fmt.Sprintf("%s seq=%d request=%s", v.Event, v.Seq, v.RequestID)
}

// fieldFlags holds the record content flags shared by create and update.
type fieldFlags struct {
	Title       string
	Description string
	Amount      uint64
	Date        string
	Category    string
}

func (f *fieldFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Title, "title", "", "expense title")
	cmd.Flags().StringVar(&f.Description, "description", "", "expense description")
	cmd.Flags().Uint64Var(&f.Amount, "amount", 0, "amount in minor units")
	cmd.Flags().StringVar(&f.Date, "date", "", "expense date, free-form")
	cmd.Flags().StringVar(&f.Category, "category", "", "Food|Transport|Leisure|Health|Education|Bills|Other (default Other)")
}

func (f *fieldFlags) fields() (ledger.Fields, error) {
	cat, err := ledger.ParseCategory(f.Category)
	if err != nil {
		return ledger.Fields{}, err
	}
	return ledger.Fields{
		Title:       []byte(f.Title),
		Description: []byte(f.Description),
		Amount:      f.Amount,
		Date:        []byte(f.Date),
		Category:    cat,
	}, nil
}

func parseID(arg string) (ledger.RecordID, error) {
	n, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid record id %q", arg), err)
	}
	return ledger.RecordID(n), nil
}

// MutationOptions holds flags for create, update and delete.
type MutationOptions struct {
	*RootOptions
	Caller string
	Fields fieldFlags
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an expense record",
		Long: `Create an expense record and print its new id.

Ids are issued in strictly increasing order starting at 1 and are never
reused, even after a delete.

Exit codes:
  0 - Record created
  1 - Rejected (no caller, identifier space exhausted)
  2 - Command error (bad category, database unreachable, etc.)

Examples:
  ledger create --caller alice --title Rent --amount 1000 --date 2024-02-12 --category Bills`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, opts, ledger.OpCreate, 0)
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "caller", "", "authenticated caller identity")
	opts.Fields.register(cmd)
	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace every field of an expense record",
		Long: `Replace every field of an existing record. Fields not given on the
command line become empty (category becomes Other); there is no partial update.

Exit codes:
  0 - Record updated
  1 - Rejected (RecordNotFound, no caller)
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runMutation(cmd, opts, ledger.OpUpdate, id)
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "caller", "", "authenticated caller identity")
	opts.Fields.register(cmd)
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MutationOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense record",
		Long: `Delete a record. Its id is never issued again.

Exit codes:
  0 - Record deleted
  1 - Rejected (RecordNotFound, no caller)
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runMutation(cmd, opts, ledger.OpDelete, id)
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "caller", "", "authenticated caller identity")
	return cmd
}

func runMutation(cmd *cobra.Command, opts *MutationOptions, op ledger.Op, id ledger.RecordID) error {
	out := newFormatter(opts.RootOptions, cmd)

	var fields ledger.Fields
	if op != ledger.OpDelete {
		f, err := opts.Fields.fields()
		if err != nil {
			return out.Fail(ExitCommandError, ledger.ErrorCode(err), err)
		}
		fields = f
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	return withEngine(ctx, opts.RootOptions, cmd, func(eng *engine.Engine) error {
		res, err := eng.Submit(ctx, ledger.Command{
			Op:     op,
			Caller: ledger.Caller(opts.Caller),
			ID:     id,
			Fields: fields,
		})
		if err != nil {
			return failMutation(out, err)
		}

		out.VerboseLog("applied %s as seq %d", res.Event, res.Seq)
		return out.Success(MutationView{
			RequestID: res.RequestID,
			Seq:       res.Seq,
			ID:        uint64(res.ID),
			Event:     res.Event.String(),
		})
	})
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one expense record",
		Long: `Show one record.

Exit codes:
  0 - Record found
  1 - RecordNotFound
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return runGet(cmd, rootOpts, id)
		},
	}
	return cmd
}

func runGet(cmd *cobra.Command, opts *RootOptions, id ledger.RecordID) error {
	out := newFormatter(opts, cmd)

	st, _, err := openStore(opts, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	r, err := st.ReadRecord(context.Background(), id)
	if errors.Is(err, store.ErrNotFound) {
		notFound := fmt.Errorf("record %d: %w", id, ledger.ErrRecordNotFound)
		return out.Fail(ExitFailure, ledger.CodeRecordNotFound, notFound)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read record", err)
	}
	return out.Success(newRecordView(r))
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List every expense record, ascending by id",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootOpts)
		},
	}
}

func runList(cmd *cobra.Command, opts *RootOptions) error {
	out := newFormatter(opts, cmd)

	st, _, err := openStore(opts, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.Load(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read records", err)
	}

	list := RecordList{Records: make([]RecordView, 0, len(snap.Records)), NextID: snap.NextID}
	for _, r := range snap.Records {
		list.Records = append(list.Records, newRecordView(r))
	}
	return out.Success(list)
}
