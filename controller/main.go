package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/nunomdc/frotad/controller/history"
	"github.com/nunomdc/frotad/controller/observability"
	"github.com/nunomdc/frotad/controller/scheduler"
	"github.com/nunomdc/frotad/controller/store"
	"github.com/nunomdc/frotad/controller/streaming"
	"github.com/nunomdc/frotad/controller/transport"
)

type config struct {
	numVehicles int
	pipeDir     string
	vehicleBin  string
	httpAddr    string
	redisAddr   string
	pgDSN       string
}

func loadConfig() config {
	cfg := config{
		numVehicles: store.DefaultVehicles,
		pipeDir:     "/tmp",
		vehicleBin:  "./veiculo",
		httpAddr:    ":8090",
	}
	if v := os.Getenv("NVEICULOS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("[CONTROLADOR] AVISO: NVEICULOS inválido (%q). A usar padrão (%d).", v, store.DefaultVehicles)
		} else {
			cfg.numVehicles = n
		}
	} else {
		log.Printf("[CONTROLADOR] AVISO: NVEICULOS não definido. A usar padrão (%d).", store.DefaultVehicles)
	}
	if v := os.Getenv("FROTAD_PIPE_DIR"); v != "" {
		cfg.pipeDir = v
	}
	if v := os.Getenv("FROTAD_VEHICLE_BIN"); v != "" {
		cfg.vehicleBin = v
	}
	if v, ok := os.LookupEnv("FROTAD_HTTP_ADDR"); ok {
		cfg.httpAddr = v // empty disables the status server
	}
	cfg.redisAddr = os.Getenv("REDIS_ADDR")
	cfg.pgDSN = os.Getenv("FROTAD_PG_DSN")
	return cfg
}

func main() {
	log.Printf("[CONTROLADOR] A iniciar sistema...")
	cfg := loadConfig()

	paths := transport.Paths{Dir: cfg.pipeDir}
	world := store.NewWorld(cfg.numVehicles)
	log.Printf("[CONTROLADOR] Frota inicializada com %d veículos.", cfg.numVehicles)

	// Reply delivery shared by every component. A vanished client is logged
	// and swallowed; the sender never finds out.
	respond := func(pid int, success bool, message string) {
		err := transport.SendReply(paths, pid, transport.Reply{Success: success, Message: message})
		if err != nil {
			observability.ReplyFailures.Inc()
			log.Printf("[CONTROLADOR] Resposta para PID %d perdida: %v", pid, err)
		}
	}

	// Lifecycle event stream: Redis when configured, the log otherwise.
	var base streaming.Publisher
	if cfg.redisAddr != "" {
		rp, err := streaming.NewRedisPublisher(cfg.redisAddr, "")
		if err != nil {
			log.Printf("[CONTROLADOR] Redis indisponível (%v); eventos vão para o log.", err)
			base = streaming.NewLogPublisher()
		} else {
			log.Printf("[CONTROLADOR] Eventos publicados em Redis (%s).", cfg.redisAddr)
			base = rp
		}
	} else {
		base = streaming.NewLogPublisher()
	}
	events := streaming.NewAsyncPublisher(base)
	world.SetEvents(events.Enqueue)

	// Optional trip archive.
	var archive *history.Archive
	if cfg.pgDSN != "" {
		a, err := history.NewArchive(context.Background(), cfg.pgDSN)
		if err != nil {
			log.Printf("[CONTROLADOR] Arquivo Postgres indisponível: %v", err)
		} else {
			archive = a
			world.SetArchive(archive.Enqueue)
		}
	}

	inbound, err := transport.OpenInbound(paths)
	if err != nil {
		log.Fatalf("[CONTROLADOR] Erro ao criar pipe servidor: %v", err)
	}

	telemetry := transport.NewTelemetrySet(paths)
	supervisor := NewSupervisor(cfg.vehicleBin, telemetry)

	ctx, cancel := context.WithCancel(context.Background())

	go NewDispatcher(world, inbound, respond).Run(ctx)
	go scheduler.NewClock(world, 0).Run(ctx)
	go scheduler.New(world, supervisor, 0).Run(ctx)
	go NewDemux(world, telemetry, respond).Run(ctx)

	hub := NewFleetHub(world)
	go hub.Run(ctx)
	if cfg.httpAddr != "" {
		go serveHTTP(ctx, newHTTPServer(cfg.httpAddr, world, hub))
	}

	admin := NewAdmin(world, supervisor, respond, os.Stdout)

	// SIGINT/SIGTERM and the admin "terminar" command converge on the same
	// shutdown path.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		admin.RunREPL(ctx, os.Stdin)
		close(done)
	}()

	select {
	case sig := <-sigs:
		log.Printf("[CONTROLADOR] Sinal %v recebido.", sig)
	case <-done:
	}

	log.Printf("[CONTROLADOR] A terminar sistema...")
	cancel()

	world.BroadcastShutdown(respond)

	inbound.Close()
	inbound.Remove()
	telemetry.CloseAll()
	events.Close()
	if archive != nil {
		archive.Close()
	}

	log.Printf("[CONTROLADOR] Encerrado.")
	os.Exit(0)
}
