package store

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/nunomdc/frotad/controller/observability"
)

// World holds every table the controller mutates: clients, vehicles,
// services, and the simulated clock. One mutex guards all of it; every
// exported method is a single critical section, so the invariants hold at
// every point where the lock is not held.
type World struct {
	mu            sync.Mutex
	simTime       int
	nextServiceID int
	clients       []*Client
	vehicles      []*Vehicle
	services      []*Service

	events  EventFunc
	archive ArchiveFunc
}

// NewWorld initializes the fleet with numVehicles vehicles, ids 1..N.
func NewWorld(numVehicles int) *World {
	if numVehicles <= 0 {
		numVehicles = DefaultVehicles
	}
	w := &World{nextServiceID: 1}
	for i := 1; i <= numVehicles; i++ {
		w.vehicles = append(w.vehicles, &Vehicle{ID: i, Available: true})
	}
	w.updateGauges()
	return w
}

// SetEvents installs the lifecycle event hook. Not safe to call after the
// worker goroutines have started.
func (w *World) SetEvents(f EventFunc) { w.events = f }

// SetArchive installs the terminal-service archive hook.
func (w *World) SetArchive(f ArchiveFunc) { w.archive = f }

func (w *World) publish(topic string, payload map[string]any) {
	if w.events != nil {
		w.events(topic, payload)
	}
}

// --- Clock ---

// AdvanceClock increments simulated time by one second and returns it.
func (w *World) AdvanceClock() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.simTime++
	observability.SimulatedTime.Set(float64(w.simTime))
	return w.simTime
}

// SimTime returns the current simulated time in seconds.
func (w *World) SimTime() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.simTime
}

// --- Request handlers (Dispatcher path) ---

// HandleLogin registers a client. Display names are unique; a PID may hold
// at most one session.
func (w *World) HandleLogin(pid int, name string, respond Responder) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if name == "" || len(name) > MaxNameLen {
		respond(pid, false, "Nome inválido")
		return
	}
	for _, c := range w.clients {
		if c.Name == name {
			respond(pid, false, "Username em uso")
			log.Printf("[CONTROLADOR] Login falhou para %s: Username em uso.", name)
			return
		}
		if c.PID == pid {
			respond(pid, false, "Sessão já ativa")
			return
		}
	}
	if len(w.clients) >= MaxClients {
		respond(pid, false, "Servidor cheio")
		log.Printf("[CONTROLADOR] Login falhou para %s: Servidor cheio.", name)
		return
	}

	w.clients = append(w.clients, &Client{PID: pid, Name: name, Status: ClientWaiting})
	w.updateGauges()
	respond(pid, true, "Bem-vindo!")
	log.Printf("[CONTROLADOR] Cliente %s (PID %d) logado com sucesso. Ativos: %d", name, pid, len(w.clients))
	w.publish("login", map[string]any{"pid": pid, "name": name})
}

// HandleRide parses "hour origin distance" and appends a SCHEDULED service.
func (w *World) HandleRide(pid int, name string, data string, respond Responder) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fields := strings.Fields(data)
	if len(fields) < 3 {
		respond(pid, false, "Formato inválido. Use: agendar <hora> <local> <distancia>")
		return
	}
	hour, err := strconv.Atoi(fields[0])
	if err != nil {
		respond(pid, false, "Formato inválido. Use: agendar <hora> <local> <distancia>")
		return
	}
	dist, err := strconv.ParseFloat(fields[2], 64)
	if err != nil || dist <= 0 {
		respond(pid, false, "Formato inválido. Use: agendar <hora> <local> <distancia>")
		return
	}
	origin := fields[1]
	if len(origin) > MaxOriginLen {
		origin = origin[:MaxOriginLen]
	}

	if len(w.services) >= MaxServices {
		respond(pid, false, "Limite de serviços atingido")
		return
	}
	if hour < w.simTime {
		respond(pid, false, fmt.Sprintf("Hora inválida. Deve ser no futuro. (Hora atual é %d)", w.simTime))
		return
	}
	for _, s := range w.services {
		if s.ClientPID == pid && !s.Status.Terminal() {
			respond(pid, false, "Já tem uma viagem agendada ou em progresso. Aguarde a conclusão.")
			return
		}
	}

	svc := &Service{
		ID:            w.nextServiceID,
		ClientName:    name,
		ClientPID:     pid,
		ScheduledTime: hour,
		Origin:        origin,
		Status:        StatusScheduled,
		DistanceKM:    dist,
	}
	w.nextServiceID++
	w.services = append(w.services, svc)
	w.updateGauges()

	respond(pid, true, fmt.Sprintf("Serviço agendado com ID %d para %s", svc.ID, FormatClock(hour)))
	log.Printf("[CONTROLADOR] Serviço ID %d agendado para %s (hora: %d, dist: %.1fkm)", svc.ID, name, hour, dist)
	w.publish("ride.scheduled", map[string]any{"service_id": svc.ID, "pid": pid, "hour": hour, "distance_km": dist})
}

// HandleCancel cancels one owned SCHEDULED service, or all of them when the
// id is 0. IN_PROGRESS and terminal services are not cancellable here.
func (w *World) HandleCancel(pid int, data string, respond Responder) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// atoi semantics: garbage parses as 0, which means "all mine".
	id, _ := strconv.Atoi(strings.TrimSpace(data))

	if id == 0 {
		cancelled := 0
		for _, s := range w.services {
			if s.ClientPID == pid && s.Status == StatusScheduled {
				s.Status = StatusCancelled
				w.archiveTerminal(s)
				cancelled++
			}
		}
		w.updateGauges()
		respond(pid, true, fmt.Sprintf("%d serviço(s) cancelado(s)", cancelled))
		log.Printf("[CONTROLADOR] Cliente PID %d cancelou %d serviço(s)", pid, cancelled)
		return
	}

	for _, s := range w.services {
		if s.ID == id && s.ClientPID == pid {
			if s.Status != StatusScheduled {
				respond(pid, false, "Serviço não pode ser cancelado (já em execução ou concluído)")
				return
			}
			s.Status = StatusCancelled
			w.archiveTerminal(s)
			w.updateGauges()
			respond(pid, true, "Serviço cancelado com sucesso")
			log.Printf("[CONTROLADOR] Serviço ID %d cancelado pelo cliente PID %d", id, pid)
			return
		}
	}
	respond(pid, false, "Serviço não encontrado ou não pertence a si")
}

// HandleConsult replies with a listing of the caller's pending services.
func (w *World) HandleConsult(pid int, respond Responder) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var b strings.Builder
	b.WriteString("[SERVIÇOS]\n")
	count := 0
	for _, s := range w.services {
		if s.ClientPID != pid || s.Status.Terminal() {
			continue
		}
		fmt.Fprintf(&b, "ID:%d | %s | %s (%.1fkm) | %s\n",
			s.ID, FormatClock(s.ScheduledTime), s.Origin, s.DistanceKM, s.Status)
		count++
	}
	if count == 0 {
		respond(pid, true, "Não tem serviços agendados")
		return
	}
	respond(pid, true, b.String())
}

// HandleTerminate removes the client unless it is on a trip. Its SCHEDULED
// services are cancelled; IN_PROGRESS and terminal services are untouched.
func (w *World) HandleTerminate(pid int, respond Responder) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, c := range w.clients {
		if c.PID != pid {
			continue
		}
		if c.Status == ClientOnTrip {
			respond(pid, false, "Não pode sair. Está em viagem!")
			log.Printf("[CONTROLADOR] %s tentou sair mas está em viagem", c.Name)
			return
		}
		cancelled := 0
		for _, s := range w.services {
			if s.ClientPID == pid && s.Status == StatusScheduled {
				s.Status = StatusCancelled
				w.archiveTerminal(s)
				cancelled++
			}
		}
		if cancelled > 0 {
			log.Printf("[CONTROLADOR] %d serviço(s) agendado(s) cancelado(s) para %s", cancelled, c.Name)
		}
		name := c.Name
		w.clients = append(w.clients[:i], w.clients[i+1:]...)
		w.updateGauges()
		respond(pid, true, "Até breve!")
		log.Printf("[CONTROLADOR] Cliente %s saiu. Ativos: %d", name, len(w.clients))
		w.publish("logout", map[string]any{"pid": pid, "name": name})
		return
	}
	// Unknown PID: nothing to do, no reply owed.
}

// --- Scheduler path ---

// Sweep binds every due SCHEDULED service to the first AVAILABLE vehicle, in
// service creation order, and launches a worker for each binding while the
// lock is held. A launch failure rolls the binding back so no state change
// survives an abandoned operation. Returns the number of workers launched.
func (w *World) Sweep(launch func(Launch) (int, error)) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	launched := 0
	for _, s := range w.services {
		if s.Status != StatusScheduled || s.ScheduledTime > w.simTime || s.VehicleID != 0 {
			continue
		}
		veh := w.firstAvailableVehicle()
		if veh == nil {
			continue
		}

		s.VehicleID = veh.ID
		s.Status = StatusInProgress
		veh.Available = false
		veh.ServiceID = s.ID
		if c := w.findClient(s.ClientPID); c != nil {
			c.Status = ClientOnTrip
		}

		log.Printf("[CONTROLADOR] Lançando veículo %d para serviço ID %d", veh.ID, s.ID)
		pid, err := launch(Launch{
			VehicleID:  veh.ID,
			ServiceID:  s.ID,
			ClientPID:  s.ClientPID,
			Origin:     s.Origin,
			DistanceKM: s.DistanceKM,
		})
		if err != nil {
			log.Printf("[CONTROLADOR] Falha ao lançar veículo %d: %v", veh.ID, err)
			s.VehicleID = 0
			s.Status = StatusScheduled
			veh.Available = true
			veh.ServiceID = 0
			if c := w.findClient(s.ClientPID); c != nil {
				c.Status = ClientWaiting
			}
			continue
		}
		veh.WorkerPID = pid
		veh.Active = true
		launched++
		w.publish("ride.assigned", map[string]any{"service_id": s.ID, "vehicle_id": veh.ID})
	}
	if launched > 0 {
		w.updateGauges()
	}
	return launched
}

// --- Telemetry path ---

// TripStarted notifies the owner that the ride began. Ignored unless the
// service is still IN_PROGRESS.
func (w *World) TripStarted(serviceID int, respond Responder) {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.findService(serviceID)
	if s == nil || s.Status != StatusInProgress {
		return
	}
	respond(s.ClientPID, true, "Viagem iniciada!")
	log.Printf("[CONTROLADOR] Viagem iniciada! (serviço ID %d)", s.ID)
	w.publish("ride.started", map[string]any{"service_id": s.ID, "vehicle_id": s.VehicleID})
}

// SetProgress updates a vehicle's trip progress percentage.
func (w *World) SetProgress(vehicleID, percent int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if v := w.findVehicle(vehicleID); v != nil {
		v.ProgressPercent = percent
	}
}

// SetDistance updates a vehicle's kilometers for the current trip.
func (w *World) SetDistance(vehicleID int, km float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if v := w.findVehicle(vehicleID); v != nil {
		v.TotalKM = km
	}
}

// CompleteTrip applies a terminal telemetry record. The vehicle is released
// only while it still carries the record's service id, which makes replayed
// records no-ops and lets the demux finish cleanup after an eager admin
// cancel. release runs under the lock and must close the vehicle's
// telemetry reader and remove its endpoint. Returns whether the record was
// applied.
func (w *World) CompleteTrip(vehicleID, serviceID int, cancelled bool, respond Responder, release func(vehicleID int)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := w.findService(serviceID)
	v := w.findVehicle(vehicleID)
	if s == nil || v == nil || v.ServiceID != serviceID {
		return false
	}

	if !s.Status.Terminal() {
		if cancelled {
			s.Status = StatusCancelled
		} else {
			s.Status = StatusCompleted
		}
		w.archiveTerminal(s)
	}

	if c := w.findClient(s.ClientPID); c != nil && c.Status == ClientOnTrip {
		c.Status = ClientWaiting
	}

	// The notification reflects the service's final state, not the record:
	// a COMPLETED record racing an admin cancel must not announce success.
	if s.Status == StatusCompleted {
		respond(s.ClientPID, true, fmt.Sprintf("Viagem concluída! Percorridos %.1f km.", s.DistanceKM))
	} else {
		respond(s.ClientPID, true, fmt.Sprintf("Viagem cancelada. Serviço ID %d", s.ID))
	}

	v.Available = true
	v.Active = false
	v.ProgressPercent = 0
	v.ServiceID = 0
	v.WorkerPID = 0
	v.TotalKM = 0
	if release != nil {
		release(vehicleID)
	}
	w.updateGauges()
	return true
}

// --- Admin path ---

// AdminCancel cancels one service by id, or every non-terminal service when
// id is 0. Workers of in-progress services receive the cancel signal through
// the provided callback; the final vehicle cleanup happens when their
// CANCELLED record arrives. Returns the number of services cancelled.
func (w *World) AdminCancel(id int, respond Responder, signalWorker func(workerPID int)) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	cancelled := 0
	for _, s := range w.services {
		if s.Status.Terminal() {
			continue
		}
		if id != 0 && s.ID != id {
			continue
		}
		s.Status = StatusCancelled
		w.archiveTerminal(s)
		if c := w.findClient(s.ClientPID); c != nil {
			c.Status = ClientWaiting
		}
		if s.VehicleID != 0 {
			if v := w.findVehicle(s.VehicleID); v != nil {
				v.Available = true
				v.Active = false
				v.ProgressPercent = 0
				// ServiceID stays bound until the worker's terminal record
				// arrives, so CompleteTrip can reconcile the release.
				if v.WorkerPID > 0 && signalWorker != nil {
					signalWorker(v.WorkerPID)
				}
				v.WorkerPID = 0
			}
		}
		respond(s.ClientPID, false, "Serviço cancelado")
		cancelled++
		if id != 0 {
			break
		}
	}
	if cancelled > 0 {
		w.updateGauges()
	}
	return cancelled
}

// BroadcastShutdown sends the reserved shutdown reply to every client.
func (w *World) BroadcastShutdown(respond Responder) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.clients {
		respond(c.PID, false, "SERVER_SHUTDOWN")
	}
	w.publish("server.shutdown", map[string]any{"clients": len(w.clients)})
}

// --- Read-only projections ---

// Snapshot returns a consistent deep copy of the world.
func (w *World) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		SimulatedTime: w.simTime,
		Clients:       make([]Client, 0, len(w.clients)),
		Vehicles:      make([]Vehicle, 0, len(w.vehicles)),
		Services:      make([]Service, 0, len(w.services)),
	}
	for _, c := range w.clients {
		snap.Clients = append(snap.Clients, *c)
	}
	for _, v := range w.vehicles {
		snap.Vehicles = append(snap.Vehicles, *v)
	}
	for _, s := range w.services {
		snap.Services = append(snap.Services, *s)
	}
	return snap
}

// CheckInvariants verifies the structural invariants of the world. Used by
// tests after randomized operation sequences.
func (w *World) CheckInvariants() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.clients) > MaxClients {
		return fmt.Errorf("%d clients exceeds limit %d", len(w.clients), MaxClients)
	}
	if len(w.services) > MaxServices {
		return fmt.Errorf("%d services exceeds limit %d", len(w.services), MaxServices)
	}

	names := make(map[string]bool)
	pids := make(map[int]bool)
	for _, c := range w.clients {
		if names[c.Name] {
			return fmt.Errorf("duplicate client name %q", c.Name)
		}
		if pids[c.PID] {
			return fmt.Errorf("duplicate client pid %d", c.PID)
		}
		names[c.Name] = true
		pids[c.PID] = true
	}

	lastID := 0
	pending := make(map[int]int)
	inProgress := make(map[int]int)
	for _, s := range w.services {
		if s.ID <= lastID {
			return fmt.Errorf("service ids not strictly increasing at %d", s.ID)
		}
		lastID = s.ID
		if !s.Status.Terminal() {
			pending[s.ClientPID]++
			if pending[s.ClientPID] > 1 {
				return fmt.Errorf("client pid %d has %d pending services", s.ClientPID, pending[s.ClientPID])
			}
		}
		switch s.Status {
		case StatusScheduled:
			if s.VehicleID != 0 {
				return fmt.Errorf("scheduled service %d has vehicle %d", s.ID, s.VehicleID)
			}
		case StatusInProgress:
			if s.VehicleID == 0 {
				return fmt.Errorf("service %d in progress without a vehicle", s.ID)
			}
			inProgress[s.ClientPID]++
		}
	}

	for _, c := range w.clients {
		onTrip := c.Status == ClientOnTrip
		if onTrip != (inProgress[c.PID] == 1) {
			return fmt.Errorf("client pid %d status %v with %d in-progress services", c.PID, c.Status, inProgress[c.PID])
		}
	}

	for _, v := range w.vehicles {
		if v.Available && v.Active {
			return fmt.Errorf("vehicle %d both available and active", v.ID)
		}
		if !v.Available {
			s := w.findService(v.ServiceID)
			if s == nil {
				return fmt.Errorf("occupied vehicle %d bound to unknown service %d", v.ID, v.ServiceID)
			}
			if s.Status != StatusInProgress {
				return fmt.Errorf("occupied vehicle %d bound to %s service %d", v.ID, s.Status, s.ID)
			}
		}
	}
	return nil
}

// --- Internal helpers (lock held) ---

func (w *World) findClient(pid int) *Client {
	for _, c := range w.clients {
		if c.PID == pid {
			return c
		}
	}
	return nil
}

func (w *World) findVehicle(id int) *Vehicle {
	for _, v := range w.vehicles {
		if v.ID == id {
			return v
		}
	}
	return nil
}

func (w *World) findService(id int) *Service {
	for _, s := range w.services {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (w *World) firstAvailableVehicle() *Vehicle {
	for _, v := range w.vehicles {
		if v.Available {
			return v
		}
	}
	return nil
}

func (w *World) archiveTerminal(s *Service) {
	outcome := "completed"
	if s.Status == StatusCancelled {
		outcome = "cancelled"
	}
	observability.TripsFinished.WithLabelValues(outcome).Inc()
	w.publish("ride."+outcome, map[string]any{"service_id": s.ID, "pid": s.ClientPID})
	if w.archive != nil {
		w.archive(*s)
	}
}

func (w *World) updateGauges() {
	observability.LoggedClients.Set(float64(len(w.clients)))
	available, scheduled, active := 0, 0, 0
	for _, v := range w.vehicles {
		if v.Available {
			available++
		}
	}
	for _, s := range w.services {
		switch s.Status {
		case StatusScheduled:
			scheduled++
		case StatusInProgress:
			active++
		}
	}
	observability.AvailableVehicles.Set(float64(available))
	observability.ScheduledServices.Set(float64(scheduled))
	observability.ActiveTrips.Set(float64(active))
}
