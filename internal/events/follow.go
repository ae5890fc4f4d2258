package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Follow subscribes to topic and calls handle with every payload decoded as
// T. Payloads that do not decode are logged and skipped. It blocks until ctx
// is cancelled or the subscription closes.
func Follow[T any](ctx context.Context, sub Subscriber, topic string, handle func(T)) error {
	ch, cancel, err := sub.Subscribe(topic)
	if err != nil {
		return fmt.Errorf("follow %s: %w", topic, err)
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			var evt T
			if err := json.Unmarshal(raw, &evt); err != nil {
				slog.Warn("skipping malformed event", "topic", topic, "err", err)
				continue
			}
			handle(evt)
		}
	}
}
