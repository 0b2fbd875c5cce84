package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/qantara-pay/settle-engine/internal/config"
	"github.com/qantara-pay/settle-engine/internal/http"
	"github.com/qantara-pay/settle-engine/internal/services/chain"
	"github.com/qantara-pay/settle-engine/internal/services/composer"
	"github.com/qantara-pay/settle-engine/internal/services/merchant"
	"github.com/qantara-pay/settle-engine/internal/services/priority"
	"github.com/qantara-pay/settle-engine/internal/services/quoter"
)

// @title Qantara Settlement API
// @version 1.0
// @description Payment settlement gateway for Solana merchants: quote a payment, split it into
// @description payout, buyback and protocol fee, and receive a ready-to-sign settle transaction.
// @description
// @description ## - Flow
// @description 1. Register a merchant profile (`POST /api/v1/merchants`)
// @description 2. Quote a payment (`GET /api/v1/quote`) — returns the split, the buyback route and a prefetched swap
// @description 3. Build the transaction (`POST /api/v1/settle/build`) — returns an unsigned base64 transaction
// @description 4. The buyer signs and submits it from their wallet
// @description
// @description ## - Conventions
// @description - Amounts are decimal strings in smallest token units (lamports for SOL, base units for USDC)
// @description - Splits are basis points (1 bps = 0.01%); payout + buyback must not exceed 10000
// @description - Quotes and built transactions expire after the configured TTL (default 30s)
// @description - Rate limit: 10 requests/second (burst: 20)
// @description
// @host localhost:8080
// @BasePath /
// @schemes http https
// @tag.name quote
// @tag.description Settlement quotes with fee splits and buyback routing
// @tag.name settle
// @tag.description Build unsigned settle transactions ready for wallet signing
// @tag.name merchants
// @tag.description Merchant profile registration and configuration
// @tag.name links
// @tag.description Fixed-price checkout links

func main() {
	// load env
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("no .env file loaded")
	}

	// di container config
	conf := container.NewConf(
		&config.GeneralConfig{},
		&config.RPCConfig{},
		&config.ProgramConfig{},
		&config.AggregatorConfig{},
		&config.StoreConfig{},
	)

	// di container
	dic, err := container.New(
		conf,

		// services
		&chain.ReaderService{},
		&chain.BlockhashCacheService{},
		&quoter.Service{},
		&composer.Service{},
		&merchant.Service{},
		&priority.Service{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	// Run() blocks until SIGINT/SIGTERM
	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
