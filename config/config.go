// Package config provides configuration keys, defaults and helpers for beerscot instances
// and their plugins. Configuration is backed by github.com/spf13/viper so any of its sources
// (file, environment, flags) can be layered.
package config

import (
	"fmt"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"time"
)

// Configuration keys
const (
	TokenKey                              = "token"                                 // Slack token, string
	DebugKey                              = "debug"                                 // Debug mode, boolean
	TimeLocationKey                       = "timeLocation"                          // The time zone used for scheduled actions, string
	UserInfoCacheSizeKey                  = "userInfoCacheSize"                     // Number of slack user infos to keep in cache, int. 0 disables caching
	MessageProcessingPartitionCount       = "messageProcessingPartitionCount"       // Number of message processing workers (power of two), int
	MessageProcessingBufferedMessageCount = "messageProcessingBufferedMessageCount" // Number of messages buffered per worker, int
	PluginsKey                            = "plugins"                               // Root of all plugin configurations
)

const (
	defaultTimeLocation                    = "Local"
	defaultUserInfoCacheSize               = 0
	defaultMessageProcessingPartitionCount = 16
	defaultBufferedMessageCount            = 10
)

// PluginConfig is a plugin's sub-configuration
type PluginConfig = viper.Viper

// NewViperWithDefaults creates a new viper instance with all defaults set
func NewViperWithDefaults() (v *viper.Viper) {
	return LayerConfigWithDefaults(viper.New())
}

// LayerConfigWithDefaults sets defaults on an existing viper instance without overriding
// values already set on it
func LayerConfigWithDefaults(v *viper.Viper) *viper.Viper {
	v.SetDefault(DebugKey, false)
	v.SetDefault(TimeLocationKey, defaultTimeLocation)
	v.SetDefault(UserInfoCacheSizeKey, defaultUserInfoCacheSize)
	v.SetDefault(MessageProcessingPartitionCount, defaultMessageProcessingPartitionCount)
	v.SetDefault(MessageProcessingBufferedMessageCount, defaultBufferedMessageCount)

	return v
}

// GetTimeLocation returns the time location loaded from the TimeLocationKey value
func GetTimeLocation(v *viper.Viper) (timeLoc *time.Location, err error) {
	timeLoc, err = time.LoadLocation(v.GetString(TimeLocationKey))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid [%s] value", TimeLocationKey)
	}

	return timeLoc, nil
}

// GetPluginConfig returns the sub-configuration of a plugin or an error if there isn't one
func GetPluginConfig(v *viper.Viper, name string) (pc *PluginConfig, err error) {
	pluginKey := fmt.Sprintf("%s.%s", PluginsKey, name)
	if !v.IsSet(pluginKey) {
		return nil, fmt.Errorf("Missing plugin configuration for plugin [%s]", name)
	}

	return v.Sub(pluginKey), nil
}

// GetPluginConfigOrEmpty returns the sub-configuration of a plugin or an empty one when the
// plugin isn't configured. Useful for plugins that can be configured entirely from the
// environment
func GetPluginConfigOrEmpty(v *viper.Viper, name string) (pc *PluginConfig) {
	pc, err := GetPluginConfig(v, name)
	if err != nil {
		return viper.New()
	}

	return pc
}
