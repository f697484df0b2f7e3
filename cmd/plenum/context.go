package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"plenum/internal/client"
	"plenum/internal/config"
	"plenum/internal/meetingcache"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) withClient(fn func(*config.Config, *client.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	api, err := client.New(cfg)
	if err != nil {
		return err
	}
	return fn(cfg, api)
}

// openCache opens the meeting metadata cache when enabled. A nil store with
// a nil error means caching is off; callers treat both the same.
func (c *commandContext) openCache() (*meetingcache.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	return meetingcache.Open(cfg)
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
