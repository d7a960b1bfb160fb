package main

import (
	"strings"
	"sync"

	"reel/internal/config"
	"reel/internal/queueaccess"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
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
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withQueue opens a queue session for the duration of fn. The session talks
// to the same SQLite database the daemon uses, so commands work whether or
// not the daemon is running.
func (c *commandContext) withQueue(fn func(queueaccess.Access) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	session, err := queueaccess.Open(cfg)
	if err != nil {
		return err
	}
	defer session.Close() //nolint:errcheck
	return fn(session.Access)
}
