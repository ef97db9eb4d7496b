package reactor

import (
	"net"

	"github.com/ebgpd/ebgpd/api"
	"github.com/sirupsen/logrus"
)

// stateHook mirrors every warning-or-above log entry onto the event
// bus as an EventOperational, so a subscriber watching only the event
// stream — not the process's own logs — still sees session problems
// the rest of the event taxonomy has no shape for: a failed dial, a
// rejected command, a malformed message logged and dropped.
type stateHook struct {
	r *Reactor
}

func newStateHook(r *Reactor) *stateHook {
	return &stateHook{r: r}
}

func (h *stateHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.WarnLevel, logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel}
}

func (h *stateHook) Fire(entry *logrus.Entry) error {
	ref := api.NeighborRef{IP: neighborIP(entry)}
	h.r.broadcast(api.NewOperationalEvent(ref, entry.Time, entry.Level.String(), entry.Message))
	return nil
}

// neighborIP recovers the neighbor a log entry concerns from the
// "neighbor" field *logrus.Entry carries, the same field name
// speaker.NewNeighbor attaches via log.WithField("neighbor", ...).
func neighborIP(entry *logrus.Entry) net.IP {
	addr, _ := entry.Data["neighbor"].(string)
	if addr == "" {
		return nil
	}
	return net.ParseIP(addr)
}
