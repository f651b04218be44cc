// chainfeed publishes ledger events into the bridge's event stream. It
// stands in for the chain indexer during local development: point it at the
// same RabbitMQ instance as the bridge and feed it events one at a time or
// as a scripted session.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hszk-dev/livebridge/internal/config"
	"github.com/hszk-dev/livebridge/internal/domain/model"
	"github.com/hszk-dev/livebridge/internal/infrastructure/queue"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		kind   = flag.String("kind", "", "event kind to publish (empty for a scripted demo session)")
		roomID = flag.Uint64("room", 1, "room ID")
		actor  = flag.String("actor", "", "actor address")
		target = flag.String("target", "", "target address (kick/unban events)")
		giftID = flag.Uint64("gift", 0, "gift ID (gift events)")
		amount = flag.Uint64("amount", 0, "amount (gift events)")
		block  = flag.Uint64("block", 1, "starting block number")
		pause  = flag.Duration("pause", time.Second, "pause between scripted events")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	client, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer client.Close()

	if *kind != "" {
		event := model.LedgerEvent{
			Kind:        model.EventKind(*kind),
			RoomID:      *roomID,
			Actor:       model.Address(*actor),
			Target:      model.Address(*target),
			GiftID:      *giftID,
			Amount:      *amount,
			BlockNumber: *block,
			Timestamp:   time.Now().UTC(),
		}
		if !event.Kind.IsValid() {
			return fmt.Errorf("unknown event kind %q", *kind)
		}
		if err := client.PublishLedgerEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
		logger.Info("published event", "kind", event.Kind, "room_id", event.RoomID)
		return nil
	}

	return publishSession(ctx, client, *roomID, *actor, *block, *pause)
}

// publishSession replays a full room lifecycle: created, live, one gift,
// ended. Useful for watching cache invalidation and fan-out end to end.
func publishSession(ctx context.Context, client *queue.Client, roomID uint64, actor string, block uint64, pause time.Duration) error {
	events := []model.LedgerEvent{
		{Kind: model.EventRoomCreated, RoomID: roomID, Actor: model.Address(actor)},
		{Kind: model.EventLiveStarted, RoomID: roomID, Actor: model.Address(actor)},
		{Kind: model.EventGiftSent, RoomID: roomID, GiftID: 1, Amount: 100},
		{Kind: model.EventLiveEnded, RoomID: roomID, Actor: model.Address(actor)},
	}

	for i, event := range events {
		event.BlockNumber = block + uint64(i)
		event.Timestamp = time.Now().UTC()
		if err := client.PublishLedgerEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to publish %s: %w", event.Kind, err)
		}
		slog.Info("published event", "kind", event.Kind, "block", event.BlockNumber)
		if i < len(events)-1 {
			time.Sleep(pause)
		}
	}
	return nil
}
