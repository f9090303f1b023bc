package main

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/config"
	"github.com/video-frame-pro/video-frame-pro-processing/internal/infra/rabbitmq"
)

func newSubmitCommand() *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue an extraction request for the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := flags.payload(cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			conn, err := amqp.Dial(cfg.RabbitMQURL)
			if err != nil {
				return fmt.Errorf("connect to rabbitmq: %w", err)
			}
			defer conn.Close()

			ch, err := conn.Channel()
			if err != nil {
				return fmt.Errorf("open channel: %w", err)
			}
			topology := rabbitmq.TopologyFromConfig(cfg)
			err = topology.Declare(ch)
			ch.Close()
			if err != nil {
				return err
			}

			pub, err := rabbitmq.NewPublisher(conn, topology.Exchange)
			if err != nil {
				return err
			}
			defer pub.Close()

			if err := pub.Publish(cmd.Context(), topology.RoutingKey, raw); err != nil {
				return fmt.Errorf("publish request: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Request queued on %s (%s)\n", topology.Exchange, topology.RoutingKey)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
