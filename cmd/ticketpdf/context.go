package main

import (
	"strings"
	"sync"

	"ticketpdf/internal/config"
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
		path := ""
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" {
			defaultPath, err := config.DefaultConfigPath()
			if err != nil {
				c.configErr = err
				return
			}
			path = defaultPath
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}
