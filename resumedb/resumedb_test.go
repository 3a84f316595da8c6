package resumedb

import "testing"

func TestPutGetRoundTrip(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	rec := Record{CRC32: 0xDEADBEEF, UnpackedSize: 1024, Status: StatusOK, SolidGeneration: 3}
	if err := db.Put("archive.rar", 5, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := db.Get("archive.rar", 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a record to be present")
	}
	if got != rec {
		t.Fatalf("got %+v, want %+v", got, rec)
	}
}

func TestGetMissingReturnsNotOK(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	_, ok, err := db.Get("archive.rar", 99)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected no record for an unwritten key")
	}
}

func TestNeedsExtractionSkipsVerifiedFiles(t *testing.T) {
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	rec := Record{CRC32: 42, UnpackedSize: 100, Status: StatusOK, SolidGeneration: 1}
	if err := db.Put("a.rar", 0, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	need, err := db.NeedsExtraction("a.rar", 0, 42, 100, 1)
	if err != nil {
		t.Fatalf("NeedsExtraction: %v", err)
	}
	if need {
		t.Fatal("expected a matching OK record to skip re-extraction")
	}

	need, err = db.NeedsExtraction("a.rar", 0, 42, 100, 2) // different solid generation
	if err != nil {
		t.Fatalf("NeedsExtraction: %v", err)
	}
	if !need {
		t.Fatal("expected a different solid generation to force re-extraction")
	}
}
