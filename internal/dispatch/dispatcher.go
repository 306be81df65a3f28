package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bonecondor/space-weather/internal/logging"
	"github.com/bonecondor/space-weather/internal/models"
)

// SendFunc delivers one alert over one channel.
type SendFunc func(ctx context.Context, alert models.Alert) error

// Dispatcher routes alerts by urgency to named delivery channels.
// Delivery is fire-and-try: a failing channel is logged and skipped, never
// aborts the tick.
type Dispatcher struct {
	channels   map[string]SendFunc
	routes     map[models.Urgency][]string
	mirrorName string
	mirror     SendFunc
	logger     *logging.Logger
}

// New builds a dispatcher over the channel registry and routing table.
func New(channels map[string]SendFunc, routes map[models.Urgency][]string, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{channels: channels, routes: routes, logger: logger}
}

// Mirror registers a channel that receives every outgoing message regardless
// of the urgency routing table. Used for the Kafka alert topic, which
// downstream consumers expect to carry the full stream.
func (d *Dispatcher) Mirror(name string, fn SendFunc) {
	d.mirrorName = name
	d.mirror = fn
}

// Dispatch delivers the filtered alerts in order. Info alerts are batched:
// a single info alert goes out as-is, two or more are merged into one
// summary message. The returned slice is what should be recorded as sent —
// the original alerts, not the synthetic batch.
func (d *Dispatcher) Dispatch(ctx context.Context, alerts []models.Alert) []models.Alert {
	var infos []models.Alert
	for _, alert := range alerts {
		if alert.Urgency == models.UrgencyInfo {
			infos = append(infos, alert)
			continue
		}
		d.send(ctx, alert)
	}

	switch len(infos) {
	case 0:
	case 1:
		d.send(ctx, infos[0])
	default:
		d.send(ctx, batchInfos(infos))
	}

	return alerts
}

// batchInfos merges several info alerts into one summary alert.
func batchInfos(infos []models.Alert) models.Alert {
	titles := make([]string, len(infos))
	for i, alert := range infos {
		titles[i] = alert.Title
	}
	return models.Alert{
		ID:        fmt.Sprintf("info-batch:%d", infos[0].Timestamp.Unix()),
		Type:      "info-batch",
		Urgency:   models.UrgencyInfo,
		Title:     fmt.Sprintf("%d Space Weather Updates", len(infos)),
		Body:      strings.Join(titles, " · "),
		Timestamp: infos[0].Timestamp,
	}
}

func (d *Dispatcher) send(ctx context.Context, alert models.Alert) {
	route := d.routes[alert.Urgency]
	if len(route) == 0 && d.mirror == nil {
		d.logger.Warnf("No channels routed for urgency %s, dropping %s", alert.Urgency, alert.Type)
		return
	}
	mirrored := false
	for _, name := range route {
		channel, ok := d.channels[name]
		if !ok {
			d.logger.Debugf("Channel %s not configured, skipping for %s", name, alert.Type)
			continue
		}
		if name == d.mirrorName {
			mirrored = true
		}
		d.deliver(ctx, name, channel, alert)
	}
	if d.mirror != nil && !mirrored {
		d.deliver(ctx, d.mirrorName, d.mirror, alert)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, name string, channel SendFunc, alert models.Alert) {
	start := time.Now()
	if err := channel(ctx, alert); err != nil {
		d.logger.Errorf("Dispatch via %s failed for %s: %v", name, alert.ID, err)
		return
	}
	d.logger.Infof("Dispatched %s [%s] via %s in %v", alert.Type, alert.Urgency, name, time.Since(start))
}
