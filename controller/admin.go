package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nunomdc/frotad/controller/store"
)

// Admin is the operator console: read-only projections of the world plus
// the administrative cancel.
type Admin struct {
	world      *store.World
	supervisor *Supervisor
	respond    store.Responder
	out        io.Writer
}

func NewAdmin(world *store.World, supervisor *Supervisor, respond store.Responder, out io.Writer) *Admin {
	return &Admin{world: world, supervisor: supervisor, respond: respond, out: out}
}

// RunREPL reads commands from in until EOF, "terminar", or ctx cancellation.
// Returns when the operator asked for shutdown or input ended.
func (a *Admin) RunREPL(ctx context.Context, in io.Reader) {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(a.out, "CMD> ")
		if !scanner.Scan() {
			return
		}
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if a.Execute(line) {
			return
		}
	}
}

// Execute runs one admin command. Returns true when the command asks the
// controller to terminate.
func (a *Admin) Execute(line string) bool {
	switch {
	case line == "terminar":
		return true
	case line == "listar":
		fmt.Fprint(a.out, a.Listar())
	case line == "utiliz":
		fmt.Fprint(a.out, a.Utiliz())
	case line == "frota":
		fmt.Fprint(a.out, a.Frota())
	case strings.HasPrefix(line, "cancelar "):
		id, _ := strconv.Atoi(strings.TrimSpace(line[len("cancelar "):]))
		a.Cancelar(id)
	case line == "km":
		fmt.Fprint(a.out, a.KM())
	case line == "hora":
		fmt.Fprint(a.out, a.Hora())
	default:
		fmt.Fprintln(a.out, "[CONTROLADOR] Comando desconhecido. Comandos disponíveis:")
		fmt.Fprintln(a.out, "  listar, utiliz, frota, cancelar <id>, km, hora, terminar")
	}
	return false
}

// Listar reports services that are scheduled or in progress.
func (a *Admin) Listar() string {
	snap := a.world.Snapshot()
	var b strings.Builder
	b.WriteString("[CONTROLADOR] == SERVIÇOS AGENDADOS ==\n")
	count := 0
	for _, s := range snap.Services {
		if s.Status.Terminal() {
			continue
		}
		fmt.Fprintf(&b, "  [ID:%d] %s -> %s | Cliente: %s | Veículo: %d | Status: %s\n",
			s.ID, s.Origin, s.Destination, s.ClientName, s.VehicleID, s.Status)
		count++
	}
	if count == 0 {
		b.WriteString("  (Nenhum serviço agendado ou em curso)\n")
	}
	return b.String()
}

// Utiliz reports logged-in clients.
func (a *Admin) Utiliz() string {
	snap := a.world.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "[CONTROLADOR] == UTILIZADORES LIGADOS (%d / %d) ==\n", len(snap.Clients), store.MaxClients)
	for _, c := range snap.Clients {
		fmt.Fprintf(&b, "  - %s (PID: %d) [%s]\n", c.Name, c.PID, c.Status)
	}
	if len(snap.Clients) == 0 {
		b.WriteString("  (Nenhum utilizador ligado)\n")
	}
	return b.String()
}

// Frota reports per-vehicle state.
func (a *Admin) Frota() string {
	snap := a.world.Snapshot()
	var b strings.Builder
	b.WriteString("[CONTROLADOR] == ESTADO DA FROTA ==\n")
	for _, v := range snap.Vehicles {
		if v.Available {
			fmt.Fprintf(&b, "  [Veículo %d] DISPONÍVEL\n", v.ID)
		} else {
			fmt.Fprintf(&b, "  [Veículo %d] EM SERVIÇO - Progresso: %d%% (Serviço ID: %d)\n",
				v.ID, v.ProgressPercent, v.ServiceID)
		}
	}
	return b.String()
}

// Cancelar cancels one service, or all non-terminal services when id is 0.
func (a *Admin) Cancelar(id int) {
	cancelled := a.world.AdminCancel(id, a.respond, a.supervisor.Signal)
	if id == 0 {
		fmt.Fprintf(a.out, "[CONTROLADOR] %d serviço(s) cancelado(s).\n", cancelled)
		return
	}
	if cancelled > 0 {
		fmt.Fprintf(a.out, "[CONTROLADOR] Serviço ID %d cancelado.\n", id)
	} else {
		fmt.Fprintf(a.out, "[CONTROLADOR] Serviço ID %d não encontrado ou já finalizado.\n", id)
	}
}

// KM reports the kilometers of the trips currently underway.
func (a *Admin) KM() string {
	snap := a.world.Snapshot()
	total := 0.0
	for _, v := range snap.Vehicles {
		total += v.TotalKM
	}
	return fmt.Sprintf("[CONTROLADOR] Quilómetros totais percorridos: %.2f km\n", total)
}

// Hora reports the simulated clock.
func (a *Admin) Hora() string {
	t := a.world.SimTime()
	return fmt.Sprintf("[CONTROLADOR] Tempo simulado: %s (%d segundos)\n", store.FormatClock(t), t)
}
