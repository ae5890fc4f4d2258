package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/appreg/internal/events"
	"github.com/alfredjeanlab/appreg/internal/model"
	"github.com/alfredjeanlab/appreg/internal/ui"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print applications as they are registered",
	Long: `Print applications as they are registered.

Registration events are read from NATS when --nats-url (or APPREG_NATS_URL)
is set. Otherwise the registry is polled and new or changed applications are
printed.`,
	GroupID: "applications",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		natsURL, _ := cmd.Flags().GetString("nats-url")
		interval, _ := cmd.Flags().GetDuration("interval")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if natsURL != "" {
			return watchNATS(ctx, natsURL)
		}
		return watchPoll(ctx, interval)
	},
}

func init() {
	watchCmd.Flags().String("nats-url", os.Getenv("APPREG_NATS_URL"), "NATS server URL")
	watchCmd.Flags().Duration("interval", 5*time.Second, "poll interval when NATS is not configured")
}

// watchNATS prints every registry and discovery event until ctx is done.
func watchNATS(ctx context.Context, natsURL string) error {
	sub, err := events.NewNATSSubscriber(natsURL, "appreg-watch")
	if err != nil {
		return fmt.Errorf("connecting to NATS: %w", err)
	}
	defer sub.Close()

	registered, cancelRegistered, err := sub.Subscribe(events.TopicApplicationRegistered)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancelRegistered()
	completed, cancelCompleted, err := sub.Subscribe(events.TopicDiscoveryCompleted)
	if err != nil {
		return fmt.Errorf("subscribing to events: %w", err)
	}
	defer cancelCompleted()

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-registered:
			if !ok {
				return nil
			}
			var evt events.ApplicationRegistered
			if err := json.Unmarshal(data, &evt); err != nil || evt.Application == nil {
				log.Printf("skipping malformed event: %v", err)
				continue
			}
			printWatchLine(evt.Application)
		case data, ok := <-completed:
			if !ok {
				return nil
			}
			var evt events.DiscoveryCompleted
			if err := json.Unmarshal(data, &evt); err != nil {
				log.Printf("skipping malformed event: %v", err)
				continue
			}
			if jsonOutput {
				fmt.Println(string(data))
				continue
			}
			fmt.Println(ui.RenderMuted(fmt.Sprintf("discovery %s (%s): %d published, %d failed in %s",
				evt.RunID, evt.Agent, evt.Published, evt.Failed, evt.Duration)))
		}
	}
}

// watchPoll lists the registry every interval and prints records whose
// content changed since the last poll.
func watchPoll(ctx context.Context, interval time.Duration) error {
	seen := make(map[string]string)
	poll := func() error {
		apps, err := registryClient.ListApplications(ctx)
		if err != nil {
			return fmt.Errorf("listing applications: %w", err)
		}
		for _, a := range apps {
			data, _ := json.Marshal(a)
			if seen[a.ID] == string(data) {
				continue
			}
			seen[a.ID] = string(data)
			printWatchLine(a)
		}
		return nil
	}

	if err := poll(); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := poll(); err != nil {
				log.Printf("poll failed: %v", err)
			}
		}
	}
}

func printWatchLine(app *model.Application) {
	if jsonOutput {
		data, _ := json.Marshal(app)
		fmt.Println(string(data))
		return
	}
	fmt.Printf("%s  %-8s  %s\n", ui.RenderAccent(app.ID), app.Category, app.Name)
}
