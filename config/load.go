package config

import (
	"aggregator/core"

	"github.com/asaskevich/govalidator"
	"github.com/fox-one/pkg/config"
)

// Load load config file
func Load(cfgFile string, cfg *core.Config) error {
	config.AutomaticLoadEnv("AGGREGATOR")
	if err := config.LoadYaml(cfgFile, cfg); err != nil {
		return err
	}

	defaultConfig(cfg)

	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		return err
	}

	return nil
}

func defaultConfig(cfg *core.Config) {
	if cfg.App.FeeCollector == "" {
		cfg.App.FeeCollector = cfg.App.Custody
	}

	if cfg.Session.Issuer == "" {
		cfg.Session.Issuer = "aggregator"
	}

	if cfg.Session.Capacity == 0 {
		cfg.Session.Capacity = 1024
	}

	for i := range cfg.Backends {
		if cfg.Backends[i].Kind == "" {
			cfg.Backends[i].Kind = "simulated"
		}
	}
}
