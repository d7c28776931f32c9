package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ledger/internal/store"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	After int64
	Limit int
}

// EventView is the output form of one logged event.
type EventView struct {
	Seq       int64  `json:"seq"`
	RequestID string `json:"request_id"`
	Caller    string `json:"caller"`
	Kind      string `json:"kind"`
	ID        uint64 `json:"id"`
	Digest    string `json:"digest"`
}

func newEventView(e store.StoredEvent) EventView {
	return EventView{
		Seq:       e.Seq,
		RequestID: e.RequestID,
		Caller:    string(e.Caller),
		Kind:      string(e.Event.Kind),
		ID:        uint64(e.Event.ID),
		Digest:    e.Digest,
	}
}

func (v EventView) String() string {
	return fmt.Sprintf("%d\t%s(%d)\t%s\t%s", v.Seq, v.Kind, v.ID, v.Caller, v.RequestID)
}

// EventList is the output of events.
type EventList struct {
	Events []EventView `json:"events"`
}

func (l EventList) String() string {
	if len(l.Events) == 0 {
		return "No events."
	}
	s := l.Events[0].String()
	for _, e := range l.Events[1:] {
		s += "\n" + e.String()
	}
	return s
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the event log",
		Long: `Show logged events in seq order.

Examples:
  ledger events
  ledger events --after 10 --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(cmd, opts)
		},
	}

	cmd.Flags().Int64Var(&opts.After, "after", 0, "only events with seq greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum events to show (0 = all)")
	return cmd
}

func runEvents(cmd *cobra.Command, opts *EventsOptions) error {
	if opts.After < 0 || opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--after and --limit must not be negative")
	}
	out := newFormatter(opts.RootOptions, cmd)

	st, _, err := openStore(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	events, err := st.ReadEvents(context.Background(), opts.After, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	list := EventList{Events: make([]EventView, 0, len(events))}
	for _, e := range events {
		list.Events = append(list.Events, newEventView(e))
	}
	return out.Success(list)
}
