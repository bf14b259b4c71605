package tgbot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ethanyoon/verseduel/internal/obslog"
)

// UpdateHandler receives each inbound update. Handlers must not block the
// poll loop; dispatch work to a goroutine for anything slow.
type UpdateHandler func(*Update)

// Poller drives the getUpdates long-poll loop.
type Poller struct {
	client     *Client
	timeoutSec int
	offset     int64
}

func NewPoller(client *Client, timeoutSec int) *Poller {
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	return &Poller{client: client, timeoutSec: timeoutSec}
}

// Run polls until ctx is canceled. Transient errors back off and continue;
// the loop never aborts on a failed poll.
func (p *Poller) Run(ctx context.Context, handle UpdateHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := p.client.GetUpdates(ctx, p.offset, p.timeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			obslog.L().Warn("poll_error", zap.Error(err))
			if serr := sleepWithContext(ctx, 2*time.Second); serr != nil {
				return serr
			}
			continue
		}
		for i := range updates {
			u := updates[i]
			if u.UpdateID >= p.offset {
				p.offset = u.UpdateID + 1
			}
			handle(&u)
		}
	}
}
