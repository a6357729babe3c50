package ws

import "github.com/SilGosker/SimpleSockets/pkg/metrics"

func observeInbound(c *Conn)  { metrics.MessagesIn.WithLabelValues(c.kind).Inc() }
func observeOutbound(c *Conn) { metrics.MessagesOut.WithLabelValues(c.kind).Inc() }

func observeJoin(c *Conn, roomCreated bool) {
	metrics.Connections.WithLabelValues(c.kind).Inc()
	if roomCreated {
		metrics.Rooms.Inc()
	}
}

func observeLeave(c *Conn, roomDeleted bool) {
	metrics.Connections.WithLabelValues(c.kind).Dec()
	if roomDeleted {
		metrics.Rooms.Dec()
	}
}
