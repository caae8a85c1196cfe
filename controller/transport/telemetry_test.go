package transport

import "testing"

func TestParseTelemetry(t *testing.T) {
	cases := []struct {
		line string
		want TelemetryRecord
	}{
		{"TRIP_STARTED|2|7", TelemetryRecord{Type: TelTripStarted, VehicleID: 2, ServiceID: 7}},
		{"PROGRESS|1|3|40", TelemetryRecord{Type: TelProgress, VehicleID: 1, ServiceID: 3, Payload: "40"}},
		{"DISTANCE|1|3|2.50", TelemetryRecord{Type: TelDistance, VehicleID: 1, ServiceID: 3, Payload: "2.50"}},
		{"COMPLETED|1|3|5.0", TelemetryRecord{Type: TelCompleted, VehicleID: 1, ServiceID: 3, Payload: "5.0"}},
		{"CANCELLED|4|9", TelemetryRecord{Type: TelCancelled, VehicleID: 4, ServiceID: 9}},
	}
	for _, c := range cases {
		got, err := ParseTelemetry(c.line)
		if err != nil {
			t.Fatalf("%q: %v", c.line, err)
		}
		if got != c.want {
			t.Fatalf("%q: got %+v, want %+v", c.line, got, c.want)
		}
	}
}

func TestParseTelemetryRejectsMalformed(t *testing.T) {
	for _, line := range []string{
		"",
		"CANCELLED",        // missing ids
		"CANCELLED|3",      // missing service id
		"PROGRESS|x|3|40",  // bad vehicle id
		"PROGRESS|1|y|40",  // bad service id
		"WHATEVER|1|2|3",   // unknown type
		"COMPLETED||3|5.0", // empty vehicle id
	} {
		if _, err := ParseTelemetry(line); err == nil {
			t.Fatalf("%q accepted", line)
		}
	}
}

func TestTelemetryRecordString(t *testing.T) {
	r := TelemetryRecord{Type: TelProgress, VehicleID: 1, ServiceID: 3, Payload: "40"}
	if r.String() != "PROGRESS|1|3|40" {
		t.Fatalf("got %q", r.String())
	}
	r = TelemetryRecord{Type: TelCancelled, VehicleID: 4, ServiceID: 9}
	if r.String() != "CANCELLED|4|9" {
		t.Fatalf("got %q", r.String())
	}
}
