package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tomrford/h3xy/pkg/checksum"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.DefaultFillByte != 0xFF {
		t.Fatalf("expected default fill byte 0xFF, got 0x%02X", cfg.DefaultFillByte)
	}
	alg, err := cfg.ResolveAlgorithm("Crc32IsoHdlc")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if alg != checksum.Crc32IsoHdlc {
		t.Fatalf("expected Crc32IsoHdlc, got %v", alg)
	}
}

func TestLoadFallsBackToDefaultsWhenNoIniFound(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DefaultFillByte != 0xFF {
		t.Fatalf("expected built-in default, got 0x%02X", cfg.DefaultFillByte)
	}
}

func TestLoadReadsCurrentDirectoryIni(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	iniBody := "[DEFAULT]\nfill_byte = 0\nrecord_width = 32\n"
	if err := os.WriteFile(filepath.Join(dir, "h3xy.ini"), []byte(iniBody), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DefaultFillByte != 0x00 {
		t.Fatalf("expected fill byte 0x00, got 0x%02X", cfg.DefaultFillByte)
	}
	if cfg.DefaultRecordWidth != 32 {
		t.Fatalf("expected record width 32, got %d", cfg.DefaultRecordWidth)
	}
}
