// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/luxfi/pledge/config"
)

const (
	ConfigFileKey        = "config-file"
	HTTPHostKey          = "http-host"
	HTTPPortKey          = "http-port"
	AllowedOriginsKey    = "http-allowed-origins"
	ReadHeaderTimeoutKey = "http-read-header-timeout"
	ShutdownTimeoutKey   = "http-shutdown-timeout"
	DBDirKey             = "db-dir"
	AdminKey             = "admin"
	RewardPoolKey        = "reward-pool"
	RouterKey            = "router"

	envPrefix = "PLEDGE"
)

// configKeys maps every flag onto the config field it overrides.
var configKeys = map[string]string{
	HTTPHostKey:          "httpHost",
	HTTPPortKey:          "httpPort",
	AllowedOriginsKey:    "allowedOrigins",
	ReadHeaderTimeoutKey: "readHeaderTimeout",
	ShutdownTimeoutKey:   "shutdownTimeout",
	DBDirKey:             "dbDir",
	AdminKey:             "admin",
	RewardPoolKey:        "rewardPool",
	RouterKey:            "router",
}

func AddFlags(flags *pflag.FlagSet) {
	defaults := config.DefaultConfig()

	flags.String(ConfigFileKey, "", "Path to a yaml, json or toml config file")
	flags.String(HTTPHostKey, defaults.HTTPHost, "Address of the HTTP server")
	flags.Uint16(HTTPPortKey, defaults.HTTPPort, "Port of the HTTP server")
	flags.StringSlice(AllowedOriginsKey, defaults.AllowedOrigins, "Origins allowed to make cross-origin requests")
	flags.Duration(ReadHeaderTimeoutKey, defaults.ReadHeaderTimeout, "Maximum duration to read request headers")
	flags.Duration(ShutdownTimeoutKey, defaults.ShutdownTimeout, "Maximum duration to wait for in-flight requests on shutdown")
	flags.String(DBDirKey, defaults.DBDir, "Database directory. Empty keeps state in memory")
	flags.String(AdminKey, defaults.Admin, "Address allowed to create pools and rebind collaborators")
	flags.String(RewardPoolKey, defaults.RewardPool, "Initial reward pool handle")
	flags.String(RouterKey, defaults.Router, "Initial router handle")
}

// BuildViper layers flags over PLEDGE_* environment variables over the
// config file.
func BuildViper(flags *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	for flag, key := range configKeys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return nil, err
		}
		if err := v.BindEnv(key, envName(flag)); err != nil {
			return nil, err
		}
	}

	configFile, err := flags.GetString(ConfigFileKey)
	if err != nil {
		return nil, err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", configFile, err)
		}
	}
	return v, nil
}

func envName(flag string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
