package migration

import (
	"strings"
	"testing"
)

func TestMergeStatus(t *testing.T) {
	migrations := []Migration{
		{Version: "20260101000000", Name: "init"},
		{Version: "20260201000000", Name: "add_sku"},
		{Version: "20260301000000", Name: "add_views"},
	}
	errText := "statement 1 failed"
	records := []MigrationRecord{
		{Version: "20260101000000", Name: "init", Status: StatusApplied},
		{Version: "20260201000000", Name: "add_sku", Status: StatusFailed, Error: &errText},
	}

	got := mergeStatus(migrations, records)
	if len(got) != 3 {
		t.Fatalf("mergeStatus() returned %d records, want 3", len(got))
	}
	want := []MigrationStatus{StatusApplied, StatusFailed, StatusPending}
	for i, r := range got {
		if r.Status != want[i] {
			t.Errorf("record %s status = %s, want %s", r.Version, r.Status, want[i])
		}
	}
	if got[2].Name != "add_views" {
		t.Errorf("pending record name = %q", got[2].Name)
	}
}

func TestMissingFiles(t *testing.T) {
	migrations := []Migration{{Version: "20260101000000"}}
	records := []MigrationRecord{
		{Version: "20260101000000", Status: StatusApplied},
		{Version: "20251201000000", Status: StatusApplied},
	}
	err := missingFiles(migrations, records)
	if err == nil || !strings.Contains(err.Error(), "20251201000000") {
		t.Errorf("missingFiles() error = %v", err)
	}
	if err := missingFiles(migrations, records[:1]); err != nil {
		t.Errorf("missingFiles() error = %v, want nil", err)
	}
}
