package idhash

import "testing"

func TestSnapshotID(t *testing.T) {
	tests := []struct {
		name    string
		ticker  string
		asOf    string
		wantLen int // hash length should be 64
	}{
		{
			name:    "plain ticker",
			ticker:  "AAPL",
			asOf:    "2026-08-25",
			wantLen: 64,
		},
		{
			name:    "ticker with class suffix",
			ticker:  "BRK.B",
			asOf:    "2026-08-25",
			wantLen: 64,
		},
		{
			name:    "empty as-of",
			ticker:  "MSFT",
			asOf:    "",
			wantLen: 64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SnapshotID(tt.ticker, tt.asOf)

			if len(got) != tt.wantLen {
				t.Errorf("SnapshotID() length = %d, want %d", len(got), tt.wantLen)
			}

			// Verify determinism: same inputs should produce same output
			got2 := SnapshotID(tt.ticker, tt.asOf)
			if got != got2 {
				t.Errorf("SnapshotID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestSnapshotID_DifferentInputs(t *testing.T) {
	base := SnapshotID("AAPL", "2026-08-25")

	if diff := SnapshotID("MSFT", "2026-08-25"); base == diff {
		t.Error("Different ticker should produce different hash")
	}
	if diff := SnapshotID("AAPL", "2026-08-26"); base == diff {
		t.Error("Different as-of date should produce different hash")
	}
}

func TestResultID(t *testing.T) {
	base := ResultID("run-abc", "AAPL")

	if len(base) != 64 {
		t.Errorf("ResultID() length = %d, want 64", len(base))
	}
	if got := ResultID("run-abc", "AAPL"); got != base {
		t.Errorf("ResultID() not deterministic: %s != %s", got, base)
	}
	if diff := ResultID("run-xyz", "AAPL"); base == diff {
		t.Error("Different run should produce different hash")
	}
	if diff := ResultID("run-abc", "MSFT"); base == diff {
		t.Error("Different ticker should produce different hash")
	}
}
