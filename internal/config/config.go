package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration. Defaults reproduce the
// firmware-style compile-time settings; environment variables (GW_*)
// override defaults and flags override both.
type Config struct {
	Interface string
	Addr      string
	MockMode  bool
	DualBand  bool
	Debug     bool
	TUI       bool

	// Deterministic runs seed the PRNG explicitly; 0 means seed from
	// the wall clock at startup.
	Seed int64

	CapturePath string
	ReportPath  string

	// Feature toggles.
	EnablePassiveScan     bool
	EnableSSIDReplication bool
	EnableLifecycleSim    bool
	EnableSequenceGaps    bool
	EnableBeaconEmulation bool
	EnableInteractionSim  bool
	EnableMeshRelay       bool

	// Pool sizing.
	TargetActivePool  int
	TargetDormantPool int

	// SSID learning.
	MaxLearnedSSIDs int
	LearnInterval   time.Duration

	MeshChannel int

	// Simulated heap envelope in bytes; the governor compares the
	// process's live heap against this budget.
	HeapEnvelope uint64
}

// Default returns the configuration with every field at its specified
// default. Load starts from this; tests use it directly.
func Default() *Config {
	return &Config{
		Interface:             "wlan0",
		Addr:                  ":8080",
		DualBand:              true,
		EnablePassiveScan:     true,
		EnableSSIDReplication: true,
		EnableLifecycleSim:    true,
		EnableSequenceGaps:    true,
		EnableBeaconEmulation: true,
		EnableInteractionSim:  true,
		EnableMeshRelay:       false,
		TargetActivePool:      1500,
		TargetDormantPool:     3000,
		MaxLearnedSSIDs:       150,
		LearnInterval:         30 * time.Second,
		MeshChannel:           1,
		HeapEnvelope:          64 << 20,
	}
}

// Load parses environment variables and command line flags into a
// Config. Flags take precedence over environment variables.
func Load() *Config {
	cfg := Default()
	ApplyEnv(cfg)

	flag.StringVar(&cfg.Interface, "i", cfg.Interface, "Network interface in monitor mode")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Dashboard HTTP address")
	flag.BoolVar(&cfg.MockMode, "mock", cfg.MockMode, "Run against an in-memory radio (no hardware)")
	flag.BoolVar(&cfg.DualBand, "dual-band", cfg.DualBand, "Interleave 5 GHz channels with 2.4 GHz")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable verbose debug logging")
	flag.BoolVar(&cfg.TUI, "tui", cfg.TUI, "Render the metrics panel in the terminal")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "PRNG seed (0 = time-based)")
	flag.StringVar(&cfg.CapturePath, "capture", cfg.CapturePath, "Path to tee emitted frames as pcap (empty to disable)")
	flag.StringVar(&cfg.ReportPath, "report", cfg.ReportPath, "Path for the end-of-run PDF report (empty to disable)")
	flag.BoolVar(&cfg.EnablePassiveScan, "passive-scan", cfg.EnablePassiveScan, "Learn nearby SSIDs from probe requests")
	flag.BoolVar(&cfg.EnableSSIDReplication, "ssid-replication", cfg.EnableSSIDReplication, "Replay learned SSIDs in synthesized traffic")
	flag.BoolVar(&cfg.EnableLifecycleSim, "lifecycle", cfg.EnableLifecycleSim, "Rotate devices through arrival/departure cycles")
	flag.BoolVar(&cfg.EnableSequenceGaps, "sequence-gaps", cfg.EnableSequenceGaps, "Inject occasional forward sequence gaps")
	flag.BoolVar(&cfg.EnableBeaconEmulation, "beacons", cfg.EnableBeaconEmulation, "Emit fake AP beacons")
	flag.BoolVar(&cfg.EnableInteractionSim, "interactions", cfg.EnableInteractionSim, "Simulate auth/assoc/data handshakes")
	flag.BoolVar(&cfg.EnableMeshRelay, "mesh-relay", cfg.EnableMeshRelay, "Listen for and rebroadcast cooperating mesh frames")
	flag.IntVar(&cfg.TargetActivePool, "active-pool", cfg.TargetActivePool, "Target active swarm size")
	flag.IntVar(&cfg.TargetDormantPool, "dormant-pool", cfg.TargetDormantPool, "Target dormant swarm size")
	flag.IntVar(&cfg.MaxLearnedSSIDs, "max-learned", cfg.MaxLearnedSSIDs, "Cap on learned (non-seed) SSIDs")
	flag.IntVar(&cfg.MeshChannel, "mesh-channel", cfg.MeshChannel, "Fixed mesh listen channel")

	flag.Parse()
	return cfg
}

// ApplyEnv overlays GW_* environment variables onto cfg.
func ApplyEnv(cfg *Config) {
	cfg.Interface = getEnv("GW_INTERFACE", cfg.Interface)
	cfg.Addr = getEnv("GW_ADDR", cfg.Addr)
	cfg.MockMode = getEnvBool("GW_MOCK", cfg.MockMode)
	cfg.DualBand = getEnvBool("GW_DUAL_BAND", cfg.DualBand)
	cfg.Seed = getEnvInt64("GW_SEED", cfg.Seed)
	cfg.CapturePath = getEnv("GW_CAPTURE", cfg.CapturePath)
	cfg.ReportPath = getEnv("GW_REPORT", cfg.ReportPath)
	cfg.EnableMeshRelay = getEnvBool("GW_MESH_RELAY", cfg.EnableMeshRelay)
	cfg.TargetActivePool = getEnvInt("GW_ACTIVE_POOL", cfg.TargetActivePool)
	cfg.TargetDormantPool = getEnvInt("GW_DORMANT_POOL", cfg.TargetDormantPool)
	cfg.MaxLearnedSSIDs = getEnvInt("GW_MAX_LEARNED", cfg.MaxLearnedSSIDs)
	cfg.MeshChannel = getEnvInt("GW_MESH_CHANNEL", cfg.MeshChannel)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
