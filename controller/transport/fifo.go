package transport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Paths resolves the well-known FIFO endpoints under one directory.
type Paths struct {
	Dir string
}

// DefaultPaths places every endpoint under /tmp, the historical location.
func DefaultPaths() Paths { return Paths{Dir: "/tmp"} }

// Server is the controller's inbound request pipe.
func (p Paths) Server() string { return filepath.Join(p.Dir, "server_pipe") }

// Client is the reply pipe owned by the client with the given pid.
func (p Paths) Client(pid int) string { return filepath.Join(p.Dir, fmt.Sprintf("cli_%d", pid)) }

// Vehicle is the telemetry pipe for one fleet vehicle.
func (p Paths) Vehicle(id int) string { return filepath.Join(p.Dir, fmt.Sprintf("veic_%d", id)) }

// Mkfifo creates a FIFO at path, tolerating one that already exists.
func Mkfifo(path string) error {
	if err := unix.Mkfifo(path, 0o666); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}
	return nil
}

// Inbound is the controller's end of the request pipe.
type Inbound struct {
	f    *os.File
	path string
}

// OpenInbound creates and opens the server pipe. The O_RDWR open keeps the
// read end alive across writer churn, so ReadRequest never sees EOF just
// because the last client closed.
func OpenInbound(p Paths) (*Inbound, error) {
	path := p.Server()
	if err := Mkfifo(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Inbound{f: f, path: path}, nil
}

// ReadRequest blocks until one full request record arrives.
func (in *Inbound) ReadRequest() (Request, error) {
	buf := make([]byte, RequestSize)
	if _, err := io.ReadFull(in.f, buf); err != nil {
		return Request{}, err
	}
	return DecodeRequest(buf)
}

// Close closes the pipe descriptor, unblocking a pending ReadRequest.
func (in *Inbound) Close() error { return in.f.Close() }

// Remove unlinks the server pipe from the filesystem.
func (in *Inbound) Remove() error { return os.Remove(in.path) }

// SendReply writes one reply record to a client's pipe without blocking on a
// vanished reader. ENXIO means nobody has the read end open; the caller
// treats that as a lost client.
func SendReply(p Paths, pid int, r Reply) error {
	fd, err := unix.Open(p.Client(pid), unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.Client(pid), err)
	}
	defer unix.Close(fd)
	buf := r.Encode()
	n, err := unix.Write(fd, buf)
	if err != nil {
		return fmt.Errorf("write reply to pid %d: %w", pid, err)
	}
	if n != len(buf) {
		return fmt.Errorf("short reply write to pid %d: %d of %d bytes", pid, n, len(buf))
	}
	return nil
}

// --- Client side ---

// ReplyPipe is a client's own reply endpoint.
type ReplyPipe struct {
	f    *os.File
	path string
}

// OpenReplyPipe creates and opens the calling client's reply pipe. Opened
// O_RDWR for the same writer-churn reason as the server pipe.
func OpenReplyPipe(p Paths, pid int) (*ReplyPipe, error) {
	path := p.Client(pid)
	if err := Mkfifo(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &ReplyPipe{f: f, path: path}, nil
}

// ReadReply blocks until one full reply record arrives.
func (rp *ReplyPipe) ReadReply() (Reply, error) {
	buf := make([]byte, ReplySize)
	if _, err := io.ReadFull(rp.f, buf); err != nil {
		return Reply{}, err
	}
	return DecodeReply(buf)
}

// Close closes and unlinks the reply pipe.
func (rp *ReplyPipe) Close() error {
	err := rp.f.Close()
	if rmErr := os.Remove(rp.path); err == nil {
		err = rmErr
	}
	return err
}

// SendRequest writes one request record to the server pipe. The blocking
// open fails fast with ENOENT when the controller never created the pipe.
func SendRequest(p Paths, r Request) error {
	f, err := os.OpenFile(p.Server(), os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.Server(), err)
	}
	defer f.Close()
	if _, err := f.Write(r.Encode()); err != nil {
		return fmt.Errorf("write request: %w", err)
	}
	return nil
}

// --- Vehicle side ---

// OpenTelemetryWriter opens a vehicle's telemetry pipe for writing. The
// controller opens the read end before launching the worker, so a plain
// blocking open is fine here.
func OpenTelemetryWriter(p Paths, vehicleID int) (*os.File, error) {
	f, err := os.OpenFile(p.Vehicle(vehicleID), os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p.Vehicle(vehicleID), err)
	}
	return f, nil
}
