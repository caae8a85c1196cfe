package transport

import (
	"os"
	"testing"
)

func TestRequestPipeRoundtrip(t *testing.T) {
	p := Paths{Dir: t.TempDir()}

	in, err := OpenInbound(p)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	defer in.Remove()

	want := Request{PID: 555, Name: "ana", Type: ReqConsult}
	if err := SendRequest(p, want); err != nil {
		t.Fatal(err)
	}

	got, err := in.ReadRequest()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestReplyPipeRoundtrip(t *testing.T) {
	p := Paths{Dir: t.TempDir()}

	rp, err := OpenReplyPipe(p, 777)
	if err != nil {
		t.Fatal(err)
	}
	defer rp.Close()

	want := Reply{Success: true, Message: "Bem-vindo!"}
	if err := SendReply(p, 777, want); err != nil {
		t.Fatal(err)
	}

	got, err := rp.ReadReply()
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSendReplyWithoutPipe(t *testing.T) {
	p := Paths{Dir: t.TempDir()}
	if err := SendReply(p, 404, Reply{Message: "x"}); err == nil {
		t.Fatal("reply to missing pipe succeeded")
	}
}

func TestSendRequestWithoutServer(t *testing.T) {
	p := Paths{Dir: t.TempDir()}
	if err := SendRequest(p, Request{PID: 1}); err == nil {
		t.Fatal("request without server pipe succeeded")
	}
}

func TestTelemetrySetPartialLineCarry(t *testing.T) {
	p := Paths{Dir: t.TempDir()}
	ts := NewTelemetrySet(p)
	defer ts.CloseAll()

	if err := ts.Create(1); err != nil {
		t.Fatal(err)
	}
	w, err := OpenTelemetryWriter(p, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	// First half of a line: nothing complete yet.
	if _, err := w.WriteString("PROGRESS|1|3|4"); err != nil {
		t.Fatal(err)
	}
	if lines := ts.Poll(); len(lines) != 0 {
		t.Fatalf("incomplete line surfaced: %v", lines)
	}

	// The rest arrives plus a second full line.
	if _, err := w.WriteString("0\nDISTANCE|1|3|2.00\n"); err != nil {
		t.Fatal(err)
	}
	lines := ts.Poll()
	if len(lines) != 2 || lines[0] != "PROGRESS|1|3|40" || lines[1] != "DISTANCE|1|3|2.00" {
		t.Fatalf("got %v", lines)
	}
}

func TestTelemetrySetRelease(t *testing.T) {
	p := Paths{Dir: t.TempDir()}
	ts := NewTelemetrySet(p)

	if err := ts.Create(2); err != nil {
		t.Fatal(err)
	}
	ts.Release(2)
	if _, err := os.Stat(p.Vehicle(2)); !os.IsNotExist(err) {
		t.Fatal("pipe still on disk after release")
	}
	// Re-create after release must work.
	if err := ts.Create(2); err != nil {
		t.Fatal(err)
	}
	ts.CloseAll()
}
