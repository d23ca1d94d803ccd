// Command jukeboxd runs the jukebox daemon in the foreground. The
// configuration is read from JUKEBOX_CONFIG or the default location.
package main

import (
	"context"
	"log"

	"jukebox/internal/config"
	"jukebox/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("jukeboxd: %v", err)
	}
}
