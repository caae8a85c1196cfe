// Package history archives terminal services to Postgres. The archive is
// insert-only: nothing in the controller ever reads it back, so a restart
// still begins from an empty world.
package history

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nunomdc/frotad/controller/store"
)

const createTripsTable = `
CREATE TABLE IF NOT EXISTS trips (
	id          BIGSERIAL PRIMARY KEY,
	service_id  INT NOT NULL,
	client_name TEXT NOT NULL,
	client_pid  INT NOT NULL,
	hour        INT NOT NULL,
	origin      TEXT NOT NULL,
	vehicle_id  INT NOT NULL,
	status      TEXT NOT NULL,
	distance_km DOUBLE PRECISION NOT NULL,
	archived_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertTrip = `
INSERT INTO trips (service_id, client_name, client_pid, hour, origin, vehicle_id, status, distance_km)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Archive writes terminal services to the trips table from a buffered
// worker goroutine, so the world's lock never waits on the database.
type Archive struct {
	pool *pgxpool.Pool
	ch   chan store.Service
	done chan struct{}
}

// NewArchive connects with dsn, ensures the trips table exists, and starts
// the insert worker.
func NewArchive(ctx context.Context, dsn string) (*Archive, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(pingCtx, createTripsTable); err != nil {
		pool.Close()
		return nil, err
	}

	a := &Archive{
		pool: pool,
		ch:   make(chan store.Service, 128),
		done: make(chan struct{}),
	}
	go a.run()
	return a, nil
}

func (a *Archive) run() {
	defer close(a.done)
	for svc := range a.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := a.pool.Exec(ctx, insertTrip,
			svc.ID, svc.ClientName, svc.ClientPID, svc.ScheduledTime,
			svc.Origin, svc.VehicleID, svc.Status.String(), svc.DistanceKM)
		cancel()
		if err != nil {
			log.Printf("[HISTORY] insert for service %d failed: %v", svc.ID, err)
		}
	}
}

// Enqueue queues one terminal service for insertion. Never blocks; on a
// full buffer the record is dropped with a log line.
func (a *Archive) Enqueue(svc store.Service) {
	select {
	case a.ch <- svc:
	default:
		log.Printf("[HISTORY] archive buffer full, dropping service %d", svc.ID)
	}
}

// Close drains pending inserts and releases the pool.
func (a *Archive) Close() {
	close(a.ch)
	select {
	case <-a.done:
	case <-time.After(5 * time.Second):
	}
	a.pool.Close()
}
