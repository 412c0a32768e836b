package queue

import "testing"

func TestJobEnvelopeRoundTrip(t *testing.T) {
	jobs := []Job{
		ScanProfile{SteamID: 76561198000000001},
		CreateMatch{MatchID: 42},
	}
	for _, job := range jobs {
		data, err := Marshal(job)
		if err != nil {
			t.Fatalf("Marshal(%v) failed: %v", job, err)
		}
		back, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", data, err)
		}
		if back != job {
			t.Errorf("round trip changed the job: %v -> %v", job, back)
		}
	}
}

func TestUnmarshalRejectsUnknownKind(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"type":"ExplodeServer"}`)); err == nil {
		t.Error("unknown job kind accepted")
	}
	if _, err := Unmarshal([]byte(`not json`)); err == nil {
		t.Error("garbage payload accepted")
	}
}

func TestScanProfileWireFormat(t *testing.T) {
	data, err := Marshal(ScanProfile{SteamID: 123})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"ScanProfile","steam_id":123}`
	if string(data) != want {
		t.Errorf("wire form = %s, want %s", data, want)
	}
}
