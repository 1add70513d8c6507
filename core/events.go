package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// MemoryEventBus fans events out to subscribers synchronously, in
// registration order. Handler errors are joined and returned so the caller
// can log them; they never indicate a failed operation because publication
// only happens after commit.
type MemoryEventBus struct {
	mu       sync.RWMutex
	handlers []EventHandler
}

func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{handlers: make([]EventHandler, 0)}
}

func (b *MemoryEventBus) Subscribe(handler EventHandler) {
	if b == nil || handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

func (b *MemoryEventBus) Publish(ctx context.Context, event Event) error {
	if b == nil {
		return nil
	}
	event = stampEvent(event)

	b.mu.RLock()
	handlers := make([]EventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := handler.HandleEvent(ctx, event.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("core: event handler failed for %s: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

func stampEvent(event Event) Event {
	if strings.TrimSpace(event.ID) == "" {
		event.ID = uuid.NewString()
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now()
	}
	return event
}

// JournalProjector subscribes to the bus and appends every event to the
// configured journal.
type JournalProjector struct {
	journal EventJournal
}

func NewJournalProjector(journal EventJournal) *JournalProjector {
	return &JournalProjector{journal: journal}
}

func (p *JournalProjector) HandleEvent(ctx context.Context, event Event) error {
	if p == nil || p.journal == nil {
		return nil
	}
	if _, err := p.journal.Append(ctx, event); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "journal append failed").
			WithTextCode(UpgradesErrorOperationFailed)
	}
	return nil
}

// Matches reports whether the event satisfies every populated filter field.
func (f EventFilter) Matches(event Event) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, event.Type) {
		return false
	}
	if name := strings.TrimSpace(f.PackageName); name != "" && name != event.PackageName {
		return false
	}
	if !f.ProxyAddress.IsZero() && !AddressesEqual(f.ProxyAddress, event.ProxyAddress) {
		return false
	}
	if !f.Since.IsZero() && event.EmittedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && event.EmittedAt.After(f.Until) {
		return false
	}
	return true
}

func (f EventFilter) normalizedWindow() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = 50
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

var _ EventHandler = (*JournalProjector)(nil)

var _ EventBus = (*MemoryEventBus)(nil)
