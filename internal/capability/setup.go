package capability

import (
	"fmt"

	"trickvs/config"
	"trickvs/varserver"
)

// Setup is the list of session commands issued before any reply is
// read. Zero values leave the corresponding server default alone.
type Setup struct {
	ClientTag         string
	DebugLevel        int // negative leaves the server default
	Format            varserver.Format
	FormatSet         bool
	Sync              bool
	CopyMode          varserver.CopyMode
	CopyModeSet       bool
	Cycle             float64
	ValidateAddresses bool
	RealTime          string // "", "enable" or "disable"
	Paused            bool   // pause periodic updates before adding variables
	Variables         []config.Variable
	Run               bool
	Freeze            bool
}

// SetupFromConfig maps the session section of cfg onto a Setup.
func SetupFromConfig(cfg *config.Config) Setup {
	s := Setup{
		ClientTag:         cfg.ClientTag,
		DebugLevel:        cfg.DebugLevel,
		Sync:              cfg.Sync,
		Cycle:             cfg.Cycle,
		ValidateAddresses: cfg.ValidateAddresses,
		RealTime:          cfg.RealTime,
		Paused:            cfg.Once,
		Variables:         cfg.Variables,
		Run:               cfg.Run,
		Freeze:            cfg.Freeze,
	}
	s.Format, s.FormatSet = cfg.OutputFormat()
	s.CopyMode, s.CopyModeSet = cfg.ParsedCopyMode()
	return s
}

// Apply writes the setup commands to conn in a fixed order: identity
// and output settings first, then the variable list, then simulation
// control. The first failure aborts the sequence.
func (s *Setup) Apply(conn *varserver.Conn) error {
	step := func(name string, err error) error {
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}

	if s.ClientTag != "" {
		if err := step("client tag", conn.SetClientTag(s.ClientTag)); err != nil {
			return err
		}
	}
	if s.DebugLevel >= 0 {
		if err := step("debug level", conn.SetDebugLevel(s.DebugLevel)); err != nil {
			return err
		}
	}
	if s.FormatSet {
		if err := step("output format", conn.SetOutputFormat(s.Format)); err != nil {
			return err
		}
	}
	if s.Sync {
		if err := step("sync", conn.SetSync()); err != nil {
			return err
		}
	}
	if s.CopyModeSet {
		if err := step("copy mode", conn.SetCopyMode(s.CopyMode)); err != nil {
			return err
		}
	}
	if s.Cycle > 0 {
		if err := step("cycle", conn.SetCycle(s.Cycle)); err != nil {
			return err
		}
	}
	if s.ValidateAddresses {
		if err := step("validate addresses", conn.ValidateAddresses(true)); err != nil {
			return err
		}
	}
	if s.RealTime != "" {
		if err := step("real time", conn.SetRealTime(s.RealTime == "enable")); err != nil {
			return err
		}
	}
	if s.Paused {
		if err := step("pause", conn.Pause()); err != nil {
			return err
		}
	}

	for _, v := range s.Variables {
		var err error
		if v.Units != "" {
			err = conn.AddVariableWithUnits(v.Name, v.Units)
		} else {
			err = conn.AddVariable(v.Name)
		}
		if err := step("add "+v.Name, err); err != nil {
			return err
		}
	}

	switch {
	case s.Run:
		return step("run", conn.Run())
	case s.Freeze:
		return step("freeze", conn.Freeze())
	}
	return nil
}
