package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"dealgraph/internal/config"
	"dealgraph/internal/telemetry"
)

func emitCmd() *cobra.Command {
	var (
		contactID string
		page      string
		at        string
		file      string
	)
	cmd := &cobra.Command{
		Use:   "emit <email_open|email_click|page_view|document_view|meeting_accept> <deal>",
		Short: "Record an engagement event on the telemetry feed or in an events file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := telemetry.Event{
				Type:      telemetry.EventType(strings.ToLower(args[0])),
				DealID:    args[1],
				ContactID: contactID,
				Page:      page,
				At:        time.Now().UTC(),
			}
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("parsing --at: %w", err)
				}
				e.At = t
			}
			if file != "" {
				return appendEvent(file, e)
			}
			return publishEvent(e)
		},
	}
	cmd.Flags().StringVar(&contactID, "contact", "", "Contact the event came from")
	cmd.Flags().StringVar(&page, "page", "", "Page URL for page_view events")
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 timestamp, defaults to now")
	cmd.Flags().StringVar(&file, "file", "", "Append to this events file instead of publishing to NATS")
	return cmd
}

func appendEvent(path string, e telemetry.Event) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	if err := telemetry.WriteEvent(f, e); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func publishEvent(e telemetry.Event) error {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Telemetry.NATSURL == "" {
		return fmt.Errorf("telemetry.nats_url is required in %s, or pass --file", configPath)
	}
	nc, err := nats.Connect(cfg.Telemetry.NATSURL, nats.Name("dealgraph-emit"))
	if err != nil {
		return fmt.Errorf("connecting to nats: %w", err)
	}
	defer nc.Close()

	if err := telemetry.Publish(nc, cfg.Telemetry.Subject, e); err != nil {
		return err
	}
	if err := nc.Flush(); err != nil {
		return fmt.Errorf("flushing nats: %w", err)
	}
	logger.Info("event published", "type", e.Type, "deal", e.DealID, "subject", cfg.Telemetry.Subject)
	return nil
}
