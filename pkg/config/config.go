// Package config loads rawstack settings from defaults, a YAML file and
// RAWSTACK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"rawstack/pkg/buffers"
	"rawstack/pkg/device"
	"rawstack/pkg/log"
	"rawstack/pkg/packet/ethernet"
	"rawstack/pkg/trafficfilter"
)

// Config is what the rawstack commands need to open and drive devices.
type Config struct {
	DeviceKind      string   `mapstructure:"device_kind"`
	DeviceName      string   `mapstructure:"device_name"`
	PeerKind        string   `mapstructure:"peer_kind"` // bridge only; empty means same as DeviceKind
	PeerName        string   `mapstructure:"peer_name"`
	MTU             int      `mapstructure:"mtu"`
	Address         string   `mapstructure:"address"` // CIDR assigned to a TUN/TAP device
	BufferSize      int      `mapstructure:"buffer_size"`
	Promiscuous     bool     `mapstructure:"promiscuous"`
	Persist         bool     `mapstructure:"persist"`
	LogLevel        string   `mapstructure:"log_level"`
	LogFormat       string   `mapstructure:"log_format"`
	EtherTypeFilter []string `mapstructure:"ethertype_filter"`
	FilterRules     []string `mapstructure:"filter_rules"` // bridge rules, see trafficfilter.ParseRule

	ConfigFile string `mapstructure:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		DeviceKind: string(device.KindTAP),
		DeviceName: "rawstack0",
		MTU:        1500,
		BufferSize: buffers.FrameSize,
		LogLevel:   "info",
		LogFormat:  log.FormatConsole,
	}
}

// Load reads configuration from defaults, then the config file, then
// RAWSTACK_* environment variables. With an empty path, rawstack.yaml is
// looked up in the working directory and /etc/rawstack; not finding it is
// fine. An explicit path that cannot be read is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rawstack")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/rawstack/")
	}
	v.SetEnvPrefix("RAWSTACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()
	return cfg, nil
}

// setDefaults registers every key so environment variables are seen by
// Unmarshal even when no config file sets them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("device_kind", cfg.DeviceKind)
	v.SetDefault("device_name", cfg.DeviceName)
	v.SetDefault("peer_kind", cfg.PeerKind)
	v.SetDefault("peer_name", cfg.PeerName)
	v.SetDefault("mtu", cfg.MTU)
	v.SetDefault("address", cfg.Address)
	v.SetDefault("buffer_size", cfg.BufferSize)
	v.SetDefault("promiscuous", cfg.Promiscuous)
	v.SetDefault("persist", cfg.Persist)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("ethertype_filter", []string{})
	v.SetDefault("filter_rules", []string{})
}

// Validate checks values that would otherwise only fail once a device is
// opened.
func (c *Config) Validate() error {
	if _, err := device.ParseKind(c.DeviceKind); err != nil {
		return err
	}
	if c.PeerKind != "" {
		if _, err := device.ParseKind(c.PeerKind); err != nil {
			return fmt.Errorf("peer: %w", err)
		}
	}
	if c.MTU < 68 || c.MTU > 65535 {
		return fmt.Errorf("mtu %d out of range [68, 65535]", c.MTU)
	}
	if c.BufferSize < buffers.MinSize {
		return fmt.Errorf("buffer_size %d smaller than %d", c.BufferSize, buffers.MinSize)
	}
	if c.Address != "" {
		if _, _, err := net.ParseCIDR(c.Address); err != nil {
			return fmt.Errorf("address: %w", err)
		}
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := c.TrafficFilter(); err != nil {
		return fmt.Errorf("filter_rules: %w", err)
	}
	_, err := c.EtherTypes()
	return err
}

// TrafficFilter parses FilterRules.
func (c *Config) TrafficFilter() (*trafficfilter.Filter, error) {
	return trafficfilter.Parse(c.FilterRules)
}

// Kind returns the parsed DeviceKind.
func (c *Config) Kind() (device.Kind, error) {
	return device.ParseKind(c.DeviceKind)
}

// PeerDeviceKind returns the parsed PeerKind, falling back to DeviceKind.
func (c *Config) PeerDeviceKind() (device.Kind, error) {
	if c.PeerKind == "" {
		return c.Kind()
	}
	return device.ParseKind(c.PeerKind)
}

// EtherTypes parses the filter entries. An entry is a name (ipv4, arp,
// ipv6) or a number such as 0x88cc.
func (c *Config) EtherTypes() ([]uint16, error) {
	var out []uint16
	for _, s := range c.EtherTypeFilter {
		t, err := ethernet.ParseEtherType(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// DeviceOptions builds the options passed to device.Open.
func (c *Config) DeviceOptions() (device.Options, error) {
	types, err := c.EtherTypes()
	if err != nil {
		return device.Options{}, err
	}
	return device.Options{
		EtherTypes:  types,
		Promiscuous: c.Promiscuous,
		Persist:     c.Persist,
	}, nil
}
