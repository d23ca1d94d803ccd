package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"jukebox/internal/apiclient"
	"jukebox/internal/config"
	"jukebox/internal/queue"
	"jukebox/internal/queueaccess"
)

const apiHealthTimeout = time.Second

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// apiClient returns a client for the configured bind, or nil when the API is
// disabled.
func (c *commandContext) apiClient() *apiclient.Client {
	cfg := c.configValue()
	if cfg == nil {
		return nil
	}
	client, err := apiclient.New(cfg.API.Bind, cfg.API.Token)
	if err != nil {
		return nil
	}
	return client
}

// dialAPI returns a client only when a daemon answers the health check.
func (c *commandContext) dialAPI(ctx context.Context) (*apiclient.Client, error) {
	client := c.apiClient()
	if client == nil {
		return nil, apiclient.ErrAPIUnavailable
	}
	healthCtx, cancel := context.WithTimeout(ctx, apiHealthTimeout)
	defer cancel()
	if err := client.Health(healthCtx); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *commandContext) openStore() (*queue.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return queue.Open(cfg)
}

func (c *commandContext) withAccess(cmd *cobra.Command, fn func(queueaccess.Access) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	session, err := queueaccess.OpenWithFallback(cfg,
		func() (*apiclient.Client, error) { return c.dialAPI(cmd.Context()) },
		c.openStore,
	)
	if err != nil {
		return err
	}
	defer session.Close()
	return fn(session.Access)
}

func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	store, err := c.openStore()
	if err != nil {
		return fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
