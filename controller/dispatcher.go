package main

import (
	"context"
	"errors"
	"io/fs"
	"log"

	"github.com/nunomdc/frotad/controller/observability"
	"github.com/nunomdc/frotad/controller/store"
	"github.com/nunomdc/frotad/controller/transport"
)

// Dispatcher reads request records off the server pipe and routes them to
// the world's handlers, one at a time, in arrival order.
type Dispatcher struct {
	world   *store.World
	inbound *transport.Inbound
	respond store.Responder
}

func NewDispatcher(world *store.World, inbound *transport.Inbound, respond store.Responder) *Dispatcher {
	return &Dispatcher{world: world, inbound: inbound, respond: respond}
}

// Run reads until ctx is cancelled. Cancellation is delivered by closing the
// inbound pipe, which fails the blocked read.
func (d *Dispatcher) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		d.inbound.Close()
	}()

	for {
		req, err := d.inbound.ReadRequest()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, fs.ErrClosed) {
				return
			}
			log.Printf("[CONTROLADOR] Erro a ler pedido: %v", err)
			continue
		}

		observability.RequestsTotal.WithLabelValues(req.Type.String()).Inc()
		pid := int(req.PID)

		switch req.Type {
		case transport.ReqLogin:
			d.world.HandleLogin(pid, req.Name, d.respond)
		case transport.ReqRide:
			d.world.HandleRide(pid, req.Name, req.Data, d.respond)
		case transport.ReqCancel:
			d.world.HandleCancel(pid, req.Data, d.respond)
		case transport.ReqConsult:
			d.world.HandleConsult(pid, d.respond)
		case transport.ReqTerminate:
			d.world.HandleTerminate(pid, d.respond)
		default:
			log.Printf("[CONTROLADOR] Pedido desconhecido %d de pid %d", req.Type, pid)
		}
	}
}
