package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"notify-engine/internal/domain/entity"
)

// fakeResolver returns fixed channels per user.
type fakeResolver struct {
	channels map[string][]entity.Channel
	err      error
	errFor   map[string]error

	calls atomic.Int32
}

func (f *fakeResolver) ResolveChannels(_ context.Context, _ string, userID string) ([]entity.Channel, error) {
	f.calls.Add(1)
	if err := f.errFor[userID]; err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.channels[userID], nil
}

// fakeAdapter records calls and answers with a fixed result.
type fakeAdapter struct {
	channelType entity.ChannelType
	result      entity.DeliveryResult
	delay       time.Duration
	ignoreCtx   bool
	panicWith   any

	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeAdapter) Type() entity.ChannelType { return f.channelType }

func (f *fakeAdapter) Deliver(ctx context.Context, _ string, _ entity.ChannelConfig, _ *entity.Notification) entity.DeliveryResult {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if cur <= prev || f.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}

	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.delay > 0 {
		if f.ignoreCtx {
			time.Sleep(f.delay)
		} else {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return entity.Failed(f.channelType, ctx.Err())
			}
		}
	}

	res := f.result
	res.ChannelType = f.channelType
	return res
}

// fakeStatusRepo captures SaveBatch calls.
type fakeStatusRepo struct {
	mu      sync.Mutex
	batches [][]entity.DeliveryStatus
	err     error
}

func (f *fakeStatusRepo) SaveBatch(_ context.Context, _ string, statuses []entity.DeliveryStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, statuses)
	return f.err
}

func (f *fakeStatusRepo) saved() [][]entity.DeliveryStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]entity.DeliveryStatus(nil), f.batches...)
}

func newNotification(id, userID string) *entity.Notification {
	return &entity.Notification{
		ID:        id,
		EventType: "ticket_assigned",
		Title:     "Ticket assigned",
		Body:      "You have a new ticket.",
		User:      entity.User{ID: userID, Email: userID + "@example.com", Name: userID},
	}
}
