// Package config holds the server configuration and the verification artifact
// constants.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the ballotd server configuration. Every field can be set through
// the environment with the BALLOTD prefix (BALLOTD_HOST, BALLOTD_PORT, ...).
type Config struct {
	Host    string `envconfig:"HOST" default:"0.0.0.0"`
	Port    int    `envconfig:"PORT" default:"9090"`
	DataDir string `envconfig:"DATA_DIR" default:""`

	ProverURL string `envconfig:"PROVER_URL" default:"http://localhost:8000"`
	ChainID   int64  `envconfig:"CHAIN_ID" default:"1"`

	VotingEndsAt time.Time `envconfig:"VOTING_ENDS_AT"`

	MaxTotalVotes   int64 `envconfig:"MAX_TOTAL_VOTES" default:"100"`
	MaxProjectVotes int64 `envconfig:"MAX_PROJECT_VOTES" default:"50"`

	CircuitWidth    int           `envconfig:"CIRCUIT_WIDTH" default:"64"`
	CommitmentBytes int           `envconfig:"COMMITMENT_BYTES" default:"64"`
	PollInterval    time.Duration `envconfig:"POLL_INTERVAL" default:"2s"`

	ApprovedVoters   []string `envconfig:"APPROVED_VOTERS"`
	ApprovedProjects []string `envconfig:"APPROVED_PROJECTS"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("ballotd", cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	return cfg, nil
}
