package cli

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChemScreen/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// NewEventsCmd creates the events command group: the run-event stream.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Observe the screening run event stream",
	}
	cmd.AddCommand(newEventsTailCmd())
	return cmd
}

func newEventsTailCmd() *cobra.Command {
	var groupID string

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Stream run events to stdout until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config
			if !cfg.Kafka.Enabled {
				return errors.New(errors.ErrCodeMessagingError, "kafka is not enabled in the configuration")
			}

			consumer := kafka.NewConsumer(kafka.ConsumerConfig{
				Brokers: cfg.Kafka.Brokers,
				Topic:   cfg.Kafka.Topic,
				GroupID: groupID,
			}, cliCtx.Logger)
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return consumer.Consume(ctx, func(event kafka.RunEvent) error {
				line, err := json.Marshal(event)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(line))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "chemscreen-cli", "consumer group ID")

	return cmd
}
