// Command relaybot runs the support-ticket relay bot and its offline
// configuration tooling.
//
// @title                      Relay Bot Admin API
// @version                    1.0
// @description                Community permission configuration and relay status for the support relay bot.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("relaybot failed")
		os.Exit(1)
	}
}
