package config

// file.go - YAML session files.
//
// A session file describes what to stream so long variable lists do not
// have to be repeated on the command line:
//
//	host: localhost
//	port: 40135
//	timeout: 5s
//	session:
//	  client_tag: cannon-monitor
//	  cycle: 0.5
//	  copy_mode: end-of-frame
//	  variables:
//	    - name: time
//	    - name: dyn.baseball.pos[0]
//	      units: ft

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML layout.  Pointer fields distinguish
// "absent" from the zero value.
type fileConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Unix    string        `yaml:"unix"`
	Timeout time.Duration `yaml:"timeout"`
	Tunnel  string        `yaml:"tunnel"`
	SSHKey  string        `yaml:"ssh_key"`

	Session struct {
		ClientTag         string     `yaml:"client_tag"`
		Format            string     `yaml:"format"`
		Sync              *bool      `yaml:"sync"`
		CopyMode          string     `yaml:"copy_mode"`
		Cycle             *float64   `yaml:"cycle"`
		DebugLevel        *int       `yaml:"debug_level"`
		ValidateAddresses *bool      `yaml:"validate_addresses"`
		RealTime          string     `yaml:"real_time"`
		Variables         []Variable `yaml:"variables"`
	} `yaml:"session"`
}

// LoadFile overlays the YAML session file at path onto cfg.  Unknown
// keys are rejected so typos surface instead of being ignored.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading session file: %w", err)
	}
	return decodeFile(data, cfg)
}

func decodeFile(data []byte, cfg *Config) error {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing session file: %w", err)
	}

	if fc.Host != "" {
		cfg.Host = fc.Host
	}
	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	if fc.Unix != "" {
		cfg.UnixPath = fc.Unix
	}
	if fc.Timeout > 0 {
		cfg.Timeout = fc.Timeout
	}
	if fc.Tunnel != "" {
		cfg.TunnelSpec = fc.Tunnel
	}
	if fc.SSHKey != "" {
		cfg.SSHKeyPath = fc.SSHKey
	}

	s := fc.Session
	if s.ClientTag != "" {
		cfg.ClientTag = s.ClientTag
	}
	if s.Format != "" {
		cfg.Format = s.Format
	}
	if s.Sync != nil {
		cfg.Sync = *s.Sync
	}
	if s.CopyMode != "" {
		cfg.CopyMode = s.CopyMode
	}
	if s.Cycle != nil {
		cfg.Cycle = *s.Cycle
	}
	if s.DebugLevel != nil {
		cfg.DebugLevel = *s.DebugLevel
	}
	if s.ValidateAddresses != nil {
		cfg.ValidateAddresses = *s.ValidateAddresses
	}
	if s.RealTime != "" {
		cfg.RealTime = s.RealTime
	}
	if len(s.Variables) > 0 {
		cfg.Variables = s.Variables
	}
	return nil
}
