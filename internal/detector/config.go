package detector

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Config carries the protocol tuning parameters shared by every member of
// a run.
type Config struct {
	// SuspicionTimeout is the number of failed probes a suspected peer is
	// granted before an observer unilaterally declares it dead.
	SuspicionTimeout int
	// DisseminationLimit caps how many messages a gossip item may be
	// attached to before it drops out of circulation.
	DisseminationLimit int
	// PiggybackCapacity caps the items attached to a single message.
	PiggybackCapacity int
	// Logger receives debug-level protocol traces.
	Logger *zap.Logger
}

func (cfg Config) Merge(def Config) Config {
	if cfg.SuspicionTimeout == 0 {
		cfg.SuspicionTimeout = def.SuspicionTimeout
	}
	if cfg.DisseminationLimit == 0 {
		cfg.DisseminationLimit = def.DisseminationLimit
	}
	if cfg.PiggybackCapacity == 0 {
		cfg.PiggybackCapacity = def.PiggybackCapacity
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return cfg
}

func (cfg Config) Validate() error {
	if cfg.SuspicionTimeout <= 0 {
		return errors.New("detector: suspicion timeout must be positive")
	}
	if cfg.DisseminationLimit <= 0 {
		return errors.New("detector: dissemination limit must be positive")
	}
	if cfg.PiggybackCapacity <= 0 {
		return errors.New("detector: piggyback capacity must be positive")
	}
	return nil
}

func DefaultConfig() Config {
	return Config{
		SuspicionTimeout:   3,
		DisseminationLimit: 3,
		PiggybackCapacity:  3,
		Logger:             zap.NewNop(),
	}
}
