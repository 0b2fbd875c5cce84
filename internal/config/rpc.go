package config

import (
	"errors"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type RPCConfig struct {
	RPCUrl string

	// RequestTimeout bounds every single chain read so one slow RPC node
	// cannot stall a compose pipeline.
	RequestTimeout time.Duration
}

func (r *RPCConfig) Key() string {
	return RPC_CONFIG_KEY
}

func (r *RPCConfig) Load() error {
	r.RPCUrl = common.GetEnvOrDefault("RPC_URL", "https://api.devnet.solana.com")
	r.RequestTimeout = time.Duration(common.GetEnvOrDefaultInt("RPC_TIMEOUT_SECONDS", 5)) * time.Second
	return nil
}

func (r *RPCConfig) Validate() error {
	if r.RPCUrl == "" {
		return errors.New("invalid rpc config")
	}
	return nil
}
