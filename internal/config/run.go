package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/primarygen/internal/generator"
)

// DefaultConfigPath is the path to the canonical run defaults file.
const DefaultConfigPath = "config/run.defaults.json"

// RunConfig represents the configuration of a generation run. Every field is
// optional; the Get* methods supply defaults for fields left unset, so
// partial configs are safe.
type RunConfig struct {
	// Detector
	Model        *int     `json:"model,omitempty"`
	WorldSizeZMM *float64 `json:"world_size_z_mm,omitempty"`

	// Primary generator pass-through options
	Signal *bool   `json:"signal,omitempty"`
	Data   *string `json:"data,omitempty"`

	// Generator backends
	Generator     *string  `json:"generator,omitempty"`
	HepMCFile     *string  `json:"hepmc_file,omitempty"`
	BridgeCommand *string  `json:"bridge_command,omitempty"`
	BridgeArgs    []string `json:"bridge_args,omitempty"`
	Macro         *string  `json:"macro,omitempty"`

	// Event loop
	Events  *int    `json:"events,omitempty"`
	Workers *int    `json:"workers,omitempty"`
	Seed    *uint64 `json:"seed,omitempty"`

	// Output
	DBPath   *string `json:"db_path,omitempty"`
	PlotsDir *string `json:"plots_dir,omitempty"`
	Verbose  *int    `json:"verbose,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyRunConfig returns a RunConfig with all fields set to nil.
func EmptyRunConfig() *RunConfig {
	return &RunConfig{}
}

// DefaultRunConfig returns a RunConfig with every field set to its default.
func DefaultRunConfig() *RunConfig {
	return &RunConfig{
		Model:        ptrInt(0),
		WorldSizeZMM: ptrFloat64(0),
		Signal:       ptrBool(false),
		Data:         ptrString(""),
		Generator:    ptrString(generator.NameParticleGun),
		Events:       ptrInt(1000),
		Workers:      ptrInt(runtime.NumCPU()),
		DBPath:       ptrString("primaries.db"),
		Verbose:      ptrInt(0),
	}
}

// LoadRunConfig loads a RunConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
func LoadRunConfig(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyRunConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded, intended for test setup.
func MustLoadDefaultConfig() *RunConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadRunConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *RunConfig) Validate() error {
	if c.WorldSizeZMM != nil && *c.WorldSizeZMM < 0 {
		return fmt.Errorf("world_size_z_mm must be non-negative, got %f", *c.WorldSizeZMM)
	}
	if c.Events != nil && *c.Events < 0 {
		return fmt.Errorf("events must be non-negative, got %d", *c.Events)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.Generator != nil {
		switch *c.Generator {
		case generator.NameParticleGun, generator.NameHepMCAscii, generator.NameBridge:
		default:
			return fmt.Errorf("unknown generator %q", *c.Generator)
		}
		if *c.Generator == generator.NameBridge && c.GetBridgeCommand() == "" {
			return fmt.Errorf("generator pythia requires bridge_command")
		}
		if *c.Generator == generator.NameHepMCAscii && c.GetHepMCFile() == "" && c.GetMacro() == "" {
			return fmt.Errorf("generator hepmcAscii requires hepmc_file or a macro that opens one")
		}
	}
	if c.Verbose != nil && *c.Verbose < 0 {
		return fmt.Errorf("verbose must be non-negative, got %d", *c.Verbose)
	}
	return nil
}

// GetModel returns the detector model selector or the default.
func (c *RunConfig) GetModel() int {
	if c.Model == nil {
		return 0
	}
	return *c.Model
}

// GetWorldSizeZMM returns the world size override; 0 derives it from the detector.
func (c *RunConfig) GetWorldSizeZMM() float64 {
	if c.WorldSizeZMM == nil {
		return 0
	}
	return *c.WorldSizeZMM
}

// GetSignal returns the signal flag or the default.
func (c *RunConfig) GetSignal() bool {
	if c.Signal == nil {
		return false
	}
	return *c.Signal
}

// GetData returns the data source string or the default.
func (c *RunConfig) GetData() string {
	if c.Data == nil {
		return ""
	}
	return *c.Data
}

// GetGenerator returns the initially selected generator name or the default.
func (c *RunConfig) GetGenerator() string {
	if c.Generator == nil || *c.Generator == "" {
		return generator.NameParticleGun
	}
	return *c.Generator
}

// GetHepMCFile returns the HepMC input path, if any.
func (c *RunConfig) GetHepMCFile() string {
	if c.HepMCFile == nil {
		return ""
	}
	return *c.HepMCFile
}

// GetBridgeCommand returns the external generator command, if any.
func (c *RunConfig) GetBridgeCommand() string {
	if c.BridgeCommand == nil {
		return ""
	}
	return *c.BridgeCommand
}

// GetMacro returns the messenger macro path, if any.
func (c *RunConfig) GetMacro() string {
	if c.Macro == nil {
		return ""
	}
	return *c.Macro
}

// GetEvents returns the number of events or the default.
func (c *RunConfig) GetEvents() int {
	if c.Events == nil {
		return 1000
	}
	return *c.Events
}

// GetWorkers returns the worker count or the number of CPUs.
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetSeed returns the run seed and whether one was configured.
func (c *RunConfig) GetSeed() (uint64, bool) {
	if c.Seed == nil {
		return 0, false
	}
	return *c.Seed, true
}

// GetDBPath returns the database path or the default.
func (c *RunConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "primaries.db"
	}
	return *c.DBPath
}

// GetPlotsDir returns the plot output directory; empty disables plotting.
func (c *RunConfig) GetPlotsDir() string {
	if c.PlotsDir == nil {
		return ""
	}
	return *c.PlotsDir
}

// GetVerbose returns the verbosity level or the default.
func (c *RunConfig) GetVerbose() int {
	if c.Verbose == nil {
		return 0
	}
	return *c.Verbose
}
