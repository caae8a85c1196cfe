package main

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/nunomdc/frotad/controller/observability"
	"github.com/nunomdc/frotad/controller/store"
	"github.com/nunomdc/frotad/controller/transport"
)

const demuxIdleSleep = 50 * time.Millisecond

// Demux polls every vehicle telemetry pipe and applies the records to the
// world. One goroutine handles the whole fleet; reads never block.
type Demux struct {
	world     *store.World
	telemetry *transport.TelemetrySet
	respond   store.Responder
}

func NewDemux(world *store.World, telemetry *transport.TelemetrySet, respond store.Responder) *Demux {
	return &Demux{world: world, telemetry: telemetry, respond: respond}
}

// Run polls until ctx is cancelled, sleeping briefly when no pipe had data.
func (d *Demux) Run(ctx context.Context) {
	for {
		lines := d.telemetry.Poll()
		for _, line := range lines {
			d.apply(line)
		}
		if len(lines) > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(demuxIdleSleep):
		}
	}
}

func (d *Demux) apply(line string) {
	rec, err := transport.ParseTelemetry(line)
	if err != nil {
		observability.TelemetryDropped.Inc()
		log.Printf("[CONTROLADOR] Telemetria descartada: %v", err)
		return
	}
	observability.TelemetryRecords.WithLabelValues(rec.Type).Inc()

	switch rec.Type {
	case transport.TelTripStarted:
		d.world.TripStarted(rec.ServiceID, d.respond)

	case transport.TelProgress:
		pct, err := strconv.Atoi(rec.Payload)
		if err != nil {
			observability.TelemetryDropped.Inc()
			return
		}
		d.world.SetProgress(rec.VehicleID, pct)

	case transport.TelDistance:
		km, err := strconv.ParseFloat(rec.Payload, 64)
		if err != nil {
			observability.TelemetryDropped.Inc()
			return
		}
		d.world.SetDistance(rec.VehicleID, km)

	case transport.TelCompleted:
		d.world.CompleteTrip(rec.VehicleID, rec.ServiceID, false, d.respond, d.telemetry.Release)

	case transport.TelCancelled:
		d.world.CompleteTrip(rec.VehicleID, rec.ServiceID, true, d.respond, d.telemetry.Release)
	}
}
