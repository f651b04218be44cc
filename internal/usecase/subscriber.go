package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hszk-dev/livebridge/internal/domain/model"
	"github.com/hszk-dev/livebridge/internal/domain/repository"
	"github.com/hszk-dev/livebridge/internal/infrastructure/cache"
	"github.com/hszk-dev/livebridge/internal/infrastructure/metrics"
)

// ErrAlreadyListening is returned when Start is called on a running subscriber.
var ErrAlreadyListening = errors.New("subscriber already listening")

// Broadcaster fans realtime notices out to connected clients. Implemented by
// the realtime hub; narrowed to an interface here so the subscriber can be
// tested without sockets.
type Broadcaster interface {
	// BroadcastToRoom delivers a notice to every connection joined to a room.
	BroadcastToRoom(roomID uint64, notice string, payload any)

	// BroadcastToAll delivers a notice to every registered connection.
	BroadcastToAll(notice string, payload any)

	// NotifyUser delivers a notice to every connection of one identity.
	NotifyUser(addr model.Address, notice string, payload any)

	// KickUser removes an identity's connections from a room, notifying them.
	KickUser(roomID uint64, addr model.Address)

	// CloseRoom disconnects every connection joined to a room.
	CloseRoom(roomID uint64)
}

// EventSubscriber consumes the ledger's ordered event stream and applies
// each event's effects: cache invalidation first, then client notification.
// Events are handled strictly one at a time in publication order; a failed
// effect is logged and the loop moves on, because stalling or redelivering
// would reorder everything behind it.
type EventSubscriber struct {
	stream      repository.EventStream
	state       *StateService
	broadcaster Broadcaster
	journal     repository.EventJournal
	counter     *cache.ViewerCounter

	mu        sync.Mutex
	listening bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewEventSubscriber creates a new EventSubscriber. journal may be nil when
// event persistence is disabled.
func NewEventSubscriber(
	stream repository.EventStream,
	state *StateService,
	broadcaster Broadcaster,
	journal repository.EventJournal,
	counter *cache.ViewerCounter,
) *EventSubscriber {
	return &EventSubscriber{
		stream:      stream,
		state:       state,
		broadcaster: broadcaster,
		journal:     journal,
		counter:     counter,
	}
}

// Start begins consuming events in a background goroutine. It returns once
// consumption is registered; ErrAlreadyListening if already running.
func (s *EventSubscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.listening {
		s.mu.Unlock()
		return ErrAlreadyListening
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.listening = true
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.listening = false
			s.mu.Unlock()
		}()

		slog.Info("event subscriber listening")
		if err := s.stream.ConsumeLedgerEvents(ctx, s.handle); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("event consumption stopped", "error", err)
		}
		slog.Info("event subscriber stopped")
	}()

	return nil
}

// Stop halts consumption and waits for the in-flight event to finish.
// Safe to call when the subscriber never started or already stopped.
func (s *EventSubscriber) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// IsListening reports whether the consume loop is running.
func (s *EventSubscriber) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// handle applies one event's effects in order: journal, invalidate, notify.
func (s *EventSubscriber) handle(event model.LedgerEvent) error {
	ctx := context.Background()
	metrics.EventsProcessedTotal.WithLabelValues(event.Kind.String()).Inc()

	s.journalEvent(ctx, event)

	switch event.Kind {
	case model.EventRoomCreated:
		// Nothing cached yet for a brand-new room.
		s.broadcaster.BroadcastToAll(model.NoticeRoomCreated, event)
		return nil

	case model.EventLiveStarted:
		err := s.invalidateRoom(ctx, event.RoomID)
		s.broadcaster.BroadcastToRoom(event.RoomID, model.NoticeLiveStarted, event)
		return err

	case model.EventLiveEnded:
		err := s.invalidateRoom(ctx, event.RoomID)
		// Clients must receive the end notice before their sockets drop,
		// and the counter resets only after the fan-out so late readers
		// never see a zeroed count for a room still being notified.
		s.broadcaster.BroadcastToRoom(event.RoomID, model.NoticeLiveEnded, event)
		s.broadcaster.CloseRoom(event.RoomID)
		s.counter.Reset(event.RoomID)
		return err

	case model.EventGiftSent:
		// Gift totals live on the room snapshot.
		err := s.invalidateRoom(ctx, event.RoomID)
		s.broadcaster.BroadcastToRoom(event.RoomID, model.NoticeGiftSent, s.giftPayload(ctx, event))
		return err

	case model.EventCoHostStarted, model.EventCoHostEnded:
		err := s.invalidateCoHosts(ctx, event.RoomID)
		s.broadcaster.BroadcastToRoom(event.RoomID, model.NoticeCoHostChanged, event)
		return err

	case model.EventViewerKicked:
		err := s.invalidateBan(ctx, event.RoomID, event.Target)
		s.broadcaster.KickUser(event.RoomID, event.Target)
		return err

	case model.EventViewerUnbanned:
		// The lifted ban only needs the cache entry dropped; the viewer
		// reconnects on their own.
		return s.invalidateBan(ctx, event.RoomID, event.Target)

	case model.EventRoomBanned:
		var errs []error
		if err := s.invalidateRoom(ctx, event.RoomID); err != nil {
			errs = append(errs, err)
		}
		if err := s.state.InvalidateRoomBans(ctx, event.RoomID); err != nil {
			slog.Warn("failed to sweep ban entries", "room_id", event.RoomID, "error", err)
			errs = append(errs, err)
		}
		s.broadcaster.BroadcastToRoom(event.RoomID, model.NoticeRoomBanned, event)
		s.broadcaster.CloseRoom(event.RoomID)
		s.counter.Reset(event.RoomID)
		return errors.Join(errs...)

	default:
		return fmt.Errorf("unhandled event kind %q", event.Kind)
	}
}

// giftNotice is a gift event decorated with catalog details, so clients can
// render the gift without a second round trip.
type giftNotice struct {
	model.LedgerEvent
	GiftName  string `json:"gift_name,omitempty"`
	GiftPrice uint64 `json:"gift_price,omitempty"`
}

// giftPayload looks the sent gift up in the (cached) catalog. The bare event
// goes out unchanged when the catalog is unavailable or the gift unknown.
func (s *EventSubscriber) giftPayload(ctx context.Context, event model.LedgerEvent) any {
	catalog, _, err := s.state.GetGiftCatalog(ctx)
	if err != nil {
		slog.Warn("gift catalog unavailable for notice", "gift_id", event.GiftID, "error", err)
		return event
	}
	gift := catalog.Find(event.GiftID)
	if gift == nil {
		return event
	}
	return giftNotice{LedgerEvent: event, GiftName: gift.Name, GiftPrice: gift.Price}
}

// journalEvent persists the event for audit. Best effort: a journal outage
// must never stall the stream.
func (s *EventSubscriber) journalEvent(ctx context.Context, event model.LedgerEvent) {
	if s.journal == nil {
		return
	}
	entry := repository.JournalEntry{
		BlockNumber: event.BlockNumber,
		Kind:        event.Kind,
		RoomID:      event.RoomID,
		Actor:       event.Actor,
		Amount:      event.Amount,
		EmittedAt:   event.Timestamp,
		ObservedAt:  time.Now().UTC(),
	}
	if err := s.journal.Append(ctx, entry); err != nil {
		slog.Warn("failed to journal event",
			"kind", event.Kind,
			"room_id", event.RoomID,
			"error", err,
		)
	}
}

func (s *EventSubscriber) invalidateRoom(ctx context.Context, roomID uint64) error {
	if err := s.state.InvalidateRoom(ctx, roomID); err != nil {
		slog.Warn("failed to invalidate room", "room_id", roomID, "error", err)
		return err
	}
	return nil
}

func (s *EventSubscriber) invalidateCoHosts(ctx context.Context, roomID uint64) error {
	if err := s.state.InvalidateCoHosts(ctx, roomID); err != nil {
		slog.Warn("failed to invalidate cohost set", "room_id", roomID, "error", err)
		return err
	}
	return nil
}

func (s *EventSubscriber) invalidateBan(ctx context.Context, roomID uint64, addr model.Address) error {
	if err := s.state.InvalidateBan(ctx, roomID, addr); err != nil {
		slog.Warn("failed to invalidate ban entry",
			"room_id", roomID,
			"target", addr,
			"error", err,
		)
		return err
	}
	return nil
}
