package config

import (
	"errors"
	"strings"

	"github.com/andrew-solarstorm/go-packages/common"
)

// ProgramConfig identifies the deployed settlement program and the cluster
// the service talks to.
type ProgramConfig struct {
	// ProgramID is the deployed settlement program address. The default is
	// the devnet deployment; override for mainnet.
	ProgramID string

	// Cluster selects which USDC mint is used ("devnet" or "mainnet").
	Cluster string

	// QuoteTTLSeconds is how long a composed transaction / quote stays
	// valid before the caller must re-quote. Blockhash and route go stale
	// together, so this is deliberately short.
	QuoteTTLSeconds int
}

func (p *ProgramConfig) Key() string {
	return PROGRAM_CONFIG_KEY
}

func (p *ProgramConfig) Load() error {
	p.ProgramID = common.GetEnvOrDefault("SETTLE_PROGRAM_ID", "JCjXHcUy7LzJsLBoafjem9wRffRyuyGYsiTz35Yyr9AH")
	p.Cluster = common.GetEnvOrDefault("CLUSTER", "devnet")
	p.QuoteTTLSeconds = common.GetEnvOrDefaultInt("QUOTE_TTL_SECONDS", 30)
	return p.Validate()
}

func (p *ProgramConfig) Validate() error {
	if p.ProgramID == "" {
		return errors.New("invalid program config: missing program id")
	}
	switch strings.ToLower(p.Cluster) {
	case "devnet", "mainnet":
	default:
		return errors.New("invalid program config: cluster must be devnet or mainnet")
	}
	if p.QuoteTTLSeconds <= 0 {
		return errors.New("invalid program config: quote ttl must be positive")
	}
	return nil
}

func (p *ProgramConfig) IsMainnet() bool {
	return strings.ToLower(p.Cluster) == "mainnet"
}
