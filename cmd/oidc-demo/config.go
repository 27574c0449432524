package main

import (
	"github.com/kbukum/oidcauth/auth/setup"
	"github.com/kbukum/oidcauth/config"
	"github.com/kbukum/oidcauth/observability"
	"github.com/kbukum/oidcauth/server"
)

// DemoConfig is the full configuration of the demo binary.
type DemoConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server  server.Config              `yaml:"server" mapstructure:"server"`
	Auth    setup.Config               `yaml:"auth" mapstructure:"auth"`
	Tracing observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

func (c *DemoConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Auth.ApplyDefaults()

	td := observability.DefaultTracerConfig(c.Name)
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = c.Name
	}
	if c.Tracing.ServiceVersion == "" {
		c.Tracing.ServiceVersion = c.Version
	}
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = c.Environment
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = td.Endpoint
		c.Tracing.Insecure = td.Insecure
	}

	md := observability.DefaultMeterConfig(c.Name)
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = c.Name
	}
	if c.Metrics.ServiceVersion == "" {
		c.Metrics.ServiceVersion = c.Version
	}
	if c.Metrics.Environment == "" {
		c.Metrics.Environment = c.Environment
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = md.Endpoint
		c.Metrics.Insecure = md.Insecure
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = md.Interval
	}
}

func (c *DemoConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}
