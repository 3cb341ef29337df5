package room

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/roomkit/roomd/pkg/metrics"
)

// Broadcaster fans one message out to every member of a room. Delivery
// is best-effort and at-most-once per recipient per call.
type Broadcaster struct {
	reg *Registry
}

func NewBroadcaster(reg *Registry) *Broadcaster {
	return &Broadcaster{reg: reg}
}

// Broadcast serializes msg once, then delivers it concurrently to every
// member of roomID except exclude (nil = no exclusion). A failed send is
// logged and evicts that recipient only; it never aborts the rest and
// never surfaces to the caller. Broadcast returns after every send has
// been dispatched, so sequential calls by the same caller reach each
// still-connected member in order.
func (b *Broadcaster) Broadcast(roomID string, msg Envelope, exclude Conn) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("broadcast marshal failed", "room", roomID, "type", msg.Type, "err", err)
		return
	}

	members := b.reg.MembersOf(roomID)
	if len(members) == 0 {
		return
	}
	metrics.BroadcastsTotal.Inc()

	var wg sync.WaitGroup
	for _, c := range members {
		if c == exclude {
			continue
		}
		wg.Add(1)
		go func(c Conn) {
			defer wg.Done()
			if err := c.Send(data); err != nil {
				slog.Warn("broadcast send failed, evicting member",
					"room", roomID, "peer", c.RemoteAddr(), "err", err)
				metrics.DeliveryFailuresTotal.Inc()
				b.reg.Leave(c)
				_ = c.Close()
			}
		}(c)
	}
	wg.Wait()
}
