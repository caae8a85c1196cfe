// Command veiculo is the per-ride worker. The controller launches one per
// assigned service; it greets the client, simulates the trip in ten steps,
// and streams telemetry back over its own FIFO. SIGUSR1 cancels the trip.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/nunomdc/frotad/controller/transport"
)

type worker struct {
	vehicleID  int
	serviceID  int
	clientPID  int
	origin     string
	distanceKM float64

	paths     transport.Paths
	telemetry *os.File
	cancelled atomic.Bool
}

func main() {
	log.SetFlags(0)
	if len(os.Args) != 6 {
		fmt.Fprintln(os.Stderr, "[VEICULO] Erro: Uso ./veiculo <id> <service_id> <client_pid> <local> <distancia>")
		os.Exit(1)
	}

	w, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "[VEICULO] Erro: %v\n", err)
		os.Exit(1)
	}
	w.paths = transport.Paths{Dir: pipeDir()}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	go func() {
		<-sigs
		w.cancelled.Store(true)
	}()

	log.Printf("[VEICULO %d] Iniciado para serviço ID %d (%.1f km)", w.vehicleID, w.serviceID, w.distanceKM)

	w.openTelemetry()
	defer w.closeTelemetry()

	w.run()
}

func pipeDir() string {
	if v := os.Getenv("FROTAD_PIPE_DIR"); v != "" {
		return v
	}
	return "/tmp"
}

func parseArgs(args []string) (*worker, error) {
	w := &worker{origin: args[3]}
	var err error
	if w.vehicleID, err = strconv.Atoi(args[0]); err != nil {
		return nil, fmt.Errorf("id inválido %q", args[0])
	}
	if w.serviceID, err = strconv.Atoi(args[1]); err != nil {
		return nil, fmt.Errorf("service_id inválido %q", args[1])
	}
	if w.clientPID, err = strconv.Atoi(args[2]); err != nil {
		return nil, fmt.Errorf("client_pid inválido %q", args[2])
	}
	if w.distanceKM, err = strconv.ParseFloat(args[4], 64); err != nil || w.distanceKM <= 0 {
		return nil, fmt.Errorf("distância inválida %q", args[4])
	}
	return w, nil
}

func (w *worker) run() {
	// Direct client contact: the pickup greeting skips the controller.
	w.contactClient()

	if w.cancelled.Load() {
		w.send(transport.TelCancelled, "")
		return
	}

	w.send(transport.TelTripStarted, "")
	time.Sleep(1 * time.Second)

	if w.cancelled.Load() {
		w.send(transport.TelCancelled, "")
		return
	}

	percent := 0
	stepSleep := time.Duration(w.distanceKM / 10.0 * float64(time.Second))
	for !w.cancelled.Load() && percent < 100 {
		time.Sleep(stepSleep)
		if w.cancelled.Load() {
			break
		}
		percent += 10
		log.Printf("[VEICULO %d] Progresso: %d%%", w.vehicleID, percent)
		w.send(transport.TelProgress, strconv.Itoa(percent))
		kmDone := float64(percent) / 100.0 * w.distanceKM
		w.send(transport.TelDistance, fmt.Sprintf("%.2f", kmDone))
	}

	if w.cancelled.Load() {
		log.Printf("[VEICULO %d] Serviço cancelado (progresso: %d%%)", w.vehicleID, percent)
		w.send(transport.TelCancelled, "")
		return
	}
	log.Printf("[VEICULO %d] Viagem concluída! Total: %.1f km", w.vehicleID, w.distanceKM)
	w.send(transport.TelCompleted, fmt.Sprintf("%.1f", w.distanceKM))
}

func (w *worker) contactClient() {
	msg := fmt.Sprintf("Veículo %d chegou a '%s'. A viagem está a iniciar!", w.vehicleID, w.origin)
	err := transport.SendReply(w.paths, w.clientPID, transport.Reply{Success: true, Message: msg})
	if err != nil {
		log.Printf("[VEICULO %d] Não foi possível contactar cliente (PID: %d)", w.vehicleID, w.clientPID)
		return
	}
	log.Printf("[VEICULO %d] Cliente contactado (PID: %d)", w.vehicleID, w.clientPID)
}

func (w *worker) openTelemetry() {
	f, err := transport.OpenTelemetryWriter(w.paths, w.vehicleID)
	if err != nil {
		log.Printf("[VEICULO %d] AVISO: Não foi possível abrir pipe de telemetria: %v", w.vehicleID, err)
		return
	}
	w.telemetry = f
}

func (w *worker) closeTelemetry() {
	if w.telemetry != nil {
		w.telemetry.Close()
		w.telemetry = nil
	}
}

// send writes one telemetry line. Every record carries the vehicle and
// service ids so the controller can reconcile replays.
func (w *worker) send(telType, payload string) {
	if w.telemetry == nil {
		return
	}
	rec := transport.TelemetryRecord{
		Type:      telType,
		VehicleID: w.vehicleID,
		ServiceID: w.serviceID,
		Payload:   payload,
	}
	fmt.Fprintln(w.telemetry, rec.String())
}
