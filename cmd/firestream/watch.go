package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/stream"
)

var watchCmd = &cobra.Command{
	Use:   "watch <path>",
	Short: "Stream the values of a database node",
	Long: `Subscribes to a database node and prints every notification of the chosen
event category until interrupted. Only meaningful with a shared backend such
as redis, where other processes write.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("event")
		event, err := domain.ParseEventType(name)
		if err != nil {
			return err
		}

		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		app, err := openApp(cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sources := app.Driver()(ctx, nil)
		ref := sources.Database.Ref(args[0])
		logger.Debug("watching", "path", ref.Path(), "event", event)

		color := term.IsTerminal(int(os.Stdout.Fd()))
		return printEvents(cmd.OutOrStdout(), ref.Events(event).Subscribe(ctx), color)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringP("event", "e", string(domain.EventValue), "Event category: value, child_added, child_changed, child_removed, child_moved")
}

// printEvents writes one timestamped JSON line per notification until ch is
// closed. An error notification ends the loop and is returned.
func printEvents(w io.Writer, ch <-chan stream.Notification[any], color bool) error {
	p := termenv.Ascii
	if color {
		p = termenv.ColorProfile()
	}
	for n := range ch {
		stamp := termenv.String(time.Now().Format(time.TimeOnly)).Foreground(p.Color("#818cf8"))
		if n.Err != nil {
			fmt.Fprintf(w, "%s %s\n", stamp, termenv.String(n.Err.Error()).Foreground(p.Color("#fb7185")))
			return n.Err
		}
		data, err := json.Marshal(n.Value)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s\n", stamp, termenv.String(string(data)).Foreground(p.Color("#c084fc")))
	}
	return nil
}
