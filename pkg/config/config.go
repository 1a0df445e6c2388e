// Package config loads h3xy's default settings from an optional h3xy.ini
// file, searched in the current directory, then $H3XY_HOME, then the
// user's home directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/tomrford/h3xy/pkg/checksum"
)

// Config holds the defaults the CLI layer falls back to when a flag's value
// isn't given explicitly.
type Config struct {
	// DefaultFillByte is the byte used by /FA, /AD, /AL, and binary/HEX-
	// ASCII gap filling when no fill byte is given on the command line.
	DefaultFillByte byte

	// DefaultRecordWidth is the data-byte count per line for Intel HEX and
	// S-Record output when /XI or /XS doesn't specify one (0 in the ini
	// file selects each codec's own built-in default).
	DefaultRecordWidth int

	// CRCAliases maps user-facing checksum algorithm names (as used on
	// /CS0..N) to checksum.Algorithm values, letting a deployment rename
	// or add aliases for the algorithm family without a code change.
	CRCAliases map[string]checksum.Algorithm
}

// defaultCRCAliases seeds the built-in /CS0..N → checksum.Algorithm
// mapping; an ini file's [crc] section can add to or override it.
func defaultCRCAliases() map[string]checksum.Algorithm {
	return map[string]checksum.Algorithm{
		"bytesumle":      checksum.ByteSumLe,
		"bytesumbe":      checksum.ByteSumBe,
		"wordsumle":      checksum.WordSumLe,
		"wordsumbe":      checksum.WordSumBe,
		"twoscomplement": checksum.TwosComplement,
		"crc16arc":       checksum.Crc16Arc,
		"crc16xmodem":    checksum.Crc16XModem,
		"crc16ibmsdlc":   checksum.Crc16IbmSdlc,
		"crc16ccittbe":   checksum.Crc16CcittBe,
		"crc16ccittle":   checksum.Crc16CcittLe,
		"crc32isohdlc":   checksum.Crc32IsoHdlc,
	}
}

// Default returns the built-in defaults, used when no h3xy.ini file is
// found anywhere in the search path.
func Default() *Config {
	return &Config{
		DefaultFillByte:    0xFF,
		DefaultRecordWidth: 0,
		CRCAliases:         defaultCRCAliases(),
	}
}

// Load reads configuration from h3xy.ini in the following search order:
//  1. Current directory (./h3xy.ini)
//  2. $H3XY_HOME directory ($H3XY_HOME/h3xy.ini)
//  3. Home directory (~/h3xy.ini)
//
// A missing file at every location is not an error: Load returns the
// built-in defaults instead, since h3xy.ini is optional configuration, not
// a required input.
func Load() (*Config, error) {
	var searchPaths []string
	searchPaths = append(searchPaths, filepath.Join(".", "h3xy.ini"))
	if dir := os.Getenv("H3XY_HOME"); dir != "" {
		searchPaths = append(searchPaths, filepath.Join(dir, "h3xy.ini"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, "h3xy.ini"))
	}

	var iniFile *ini.File
	for _, path := range searchPaths {
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		f, err := ini.Load(path)
		if err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
		iniFile = f
		break
	}

	cfg := Default()
	if iniFile == nil {
		return cfg, nil
	}

	defaults := iniFile.Section("DEFAULT")
	cfg.DefaultFillByte = byte(defaults.Key("fill_byte").MustInt(int(cfg.DefaultFillByte)))
	cfg.DefaultRecordWidth = defaults.Key("record_width").MustInt(cfg.DefaultRecordWidth)

	if iniFile.HasSection("crc") {
		for _, key := range iniFile.Section("crc").Keys() {
			alg, ok := defaultCRCAliases()[strings.ToLower(key.Value())]
			if !ok {
				return nil, fmt.Errorf("config: [crc] alias %q refers to an unknown algorithm %q", key.Name(), key.Value())
			}
			cfg.CRCAliases[strings.ToLower(key.Name())] = alg
		}
	}

	return cfg, nil
}

// ResolveAlgorithm looks up a /CS0..N algorithm name (case-insensitive)
// against cfg's alias table.
func (c *Config) ResolveAlgorithm(name string) (checksum.Algorithm, error) {
	alg, ok := c.CRCAliases[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("config: unknown checksum algorithm %q", name)
	}
	return alg, nil
}
