package config

import (
	"github.com/andrew-solarstorm/go-packages/common"
)

// StoreConfig configures the BoltDB-backed merchant/payment-link store.
type StoreConfig struct {
	// DBPath is the path to the BoltDB file.
	// Default: "./data/settle-engine.db"
	DBPath string
}

func (c *StoreConfig) Key() string {
	return STORE_CONFIG_KEY
}

func (c *StoreConfig) Load() error {
	c.DBPath = common.GetEnvOrDefault("STORE_DB_PATH", "./data/settle-engine.db")
	return nil
}

func (c *StoreConfig) Validate() error {
	return nil
}
