package display

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestStoreShowAndRead(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "nested", "display.json")
	s := New(p)
	s.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

	if err := s.Show(Result("SKU123", 8, "a1")); err != nil {
		t.Fatalf("Show error: %v", err)
	}

	got, err := s.Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if got.Kind != KindResult || got.Line1 != "SKU123" || got.Line2 != "QTY: 8" {
		t.Fatalf("payload mismatch: %+v", got)
	}
	if got.Quantity == nil || *got.Quantity != 8 {
		t.Fatalf("quantity mismatch: %v", got.Quantity)
	}
	if len(got.Rows) != 4 || got.Rows[0] != "SKU123" || got.Rows[3] != "QTY: 8" {
		t.Fatalf("rows mismatch: %q", got.Rows)
	}
	if got.UpdatedAt != "2026-03-02T09:00:00Z" {
		t.Fatalf("updated_at mismatch: %q", got.UpdatedAt)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file should be renamed away, stat err=%v", err)
	}
}

func TestStoreShowReplacesPayload(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "display.json"))
	if err := s.Show(Result("SKU123", 8, "")); err != nil {
		t.Fatal(err)
	}
	if err := s.Show(Status("Scan the QR Code")); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindStatus || got.Quantity != nil || got.SKU != "" {
		t.Fatalf("stale fields kept: %+v", got)
	}
}

func TestStoreConcurrentShows(t *testing.T) {
	p := filepath.Join(t.TempDir(), "display.json")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s := New(p)
			for j := 0; j < 10; j++ {
				if err := s.Show(Result("SKU123", n*10+j, "")); err != nil {
					t.Errorf("Show error: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	got, err := New(p).Read()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if got.Kind != KindResult || got.Quantity == nil {
		t.Fatalf("payload mismatch: %+v", got)
	}
	if _, err := os.Stat(p + ".lock"); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
}

func TestNilStoreIsNoop(t *testing.T) {
	var s *Store
	if err := s.Show(Status("x")); err != nil {
		t.Fatalf("nil store Show error: %v", err)
	}
	if err := New("").Show(Status("x")); err != nil {
		t.Fatalf("empty path Show error: %v", err)
	}
}

func TestPanelRows(t *testing.T) {
	rows := PanelRows(Payload{Line1: "Error initializing serial connection.", Line2: "QTY: 1234567"})
	want := []string{"Error initia", "lizing seria", "l connection", "QTY: 12345"}
	if len(rows) != len(want) {
		t.Fatalf("rows len mismatch: got=%d want=%d", len(rows), len(want))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("row %d mismatch: got=%q want=%q", i, rows[i], want[i])
		}
	}

	short := PanelRows(Status("CSV Loaded."))
	if short[0] != "CSV Loaded." || short[1] != "" || short[3] != "" {
		t.Fatalf("short rows mismatch: %q", short)
	}
}
