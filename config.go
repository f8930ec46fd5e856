package swim

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/aldermoor/swim/internal/archive"
	"github.com/aldermoor/swim/internal/detector"
	"github.com/aldermoor/swim/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
)

// Config configures a run. The five protocol parameters are required; the
// remainder default through Merge(DefaultConfig()).
type Config struct {
	// Members is the total member count. Members are identified 1..Members.
	Members int
	// Dead is the number of members starting dead; members 1..Dead are
	// seeded with the nil incarnation and must be detected by the rest.
	Dead int
	// SuspicionTimeout is the number of failed probes before a suspected
	// member is expired.
	SuspicionTimeout int
	// DisseminationLimit is the maximum number of messages a gossip item
	// may be piggybacked onto.
	DisseminationLimit int
	// PiggybackCapacity is the maximum number of items per message.
	PiggybackCapacity int
	// MaxSteps bounds the run; exhausting it is the did-not-converge
	// outcome, not an error.
	MaxSteps int
	// Seed drives the discrete-event scheduler. Equal seeds and parameters
	// reproduce runs exactly.
	Seed int64
	// Logger receives debug-level protocol traces.
	Logger *zap.Logger
	// Registry, when set, receives the run's prometheus instruments.
	Registry *prometheus.Registry
	// Archive, when set, persists the finished report under ArchiveKey.
	Archive *archive.Archive
	// ArchiveKey names the run in the archive.
	ArchiveKey string
}

func (cfg Config) Merge(def Config) Config {
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = def.MaxSteps
	}
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.ArchiveKey == "" {
		cfg.ArchiveKey = def.ArchiveKey
	}
	return cfg
}

func (cfg Config) Validate() error {
	if cfg.Members < 2 {
		return errors.New("swim: at least two members required")
	}
	if cfg.Dead < 0 || cfg.Dead >= cfg.Members {
		return errors.New("swim: dead member count must leave at least one live member")
	}
	if cfg.SuspicionTimeout <= 0 {
		return errors.New("swim: suspicion timeout must be positive")
	}
	if cfg.DisseminationLimit <= 0 {
		return errors.New("swim: dissemination limit must be positive")
	}
	if cfg.PiggybackCapacity <= 0 {
		return errors.New("swim: piggyback capacity must be positive")
	}
	if cfg.MaxSteps <= 0 {
		return errors.New("swim: step budget must be positive")
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		MaxSteps:   250_000,
		Seed:       1,
		Logger:     zap.NewNop(),
		ArchiveKey: "run",
	}
}

func (cfg Config) detector() detector.Config {
	return detector.Config{
		SuspicionTimeout:   cfg.SuspicionTimeout,
		DisseminationLimit: cfg.DisseminationLimit,
		PiggybackCapacity:  cfg.PiggybackCapacity,
		Logger:             cfg.Logger,
	}
}

// registerer returns the configured registry as the collector's interface
// type, mapping a nil pointer to a nil interface so the collector's nil
// check sees it.
func (cfg Config) registerer() stats.Registerer {
	if cfg.Registry == nil {
		return nil
	}
	return cfg.Registry
}

func (cfg Config) params() stats.Params {
	return stats.Params{
		Members:            cfg.Members,
		Dead:               cfg.Dead,
		SuspicionTimeout:   cfg.SuspicionTimeout,
		DisseminationLimit: cfg.DisseminationLimit,
		PiggybackCapacity:  cfg.PiggybackCapacity,
		Seed:               cfg.Seed,
	}
}
