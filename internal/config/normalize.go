// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/tamzrod/kvlogger/internal/keyence"
)

const (
	DefaultTimeoutMs     = 2000
	DefaultIntervalMs    = 1000
	DefaultWindowSize    = 600
	DefaultListen        = ":8080"
	DefaultMQTTPort      = 1883
	DefaultLogLevel      = "info"
	DeviceNameMaxChars   = 16
	defaultMQTTTopicRoot = "kvlogger"
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	d := &cfg.Device
	if d.TimeoutMs <= 0 {
		d.TimeoutMs = DefaultTimeoutMs
	}
	if d.Name == "" {
		d.Name = d.Host
	}
	if len(d.Name) > DeviceNameMaxChars {
		d.Name = d.Name[:DeviceNameMaxChars]
	}

	if cfg.Poll.IntervalMs <= 0 {
		cfg.Poll.IntervalMs = DefaultIntervalMs
	}
	if cfg.Poll.WindowSize <= 0 {
		cfg.Poll.WindowSize = DefaultWindowSize
	}

	for i := range cfg.Measurements {
		m := &cfg.Measurements[i]
		if m.Count <= 0 {
			m.Count = 1
		}
		// already validated
		if f, err := keyence.ParseDataFormat(m.Format); err == nil {
			m.Format = string(f)
		}
		m.Address = strings.ToUpper(strings.TrimSpace(m.Address))
	}

	if cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = DefaultListen
	}

	if mq := cfg.MQTT; mq != nil {
		if mq.Port == 0 {
			mq.Port = DefaultMQTTPort
		}
		if mq.Topic == "" {
			mq.Topic = defaultMQTTTopicRoot + "/" + d.Name
		}
		mq.Topic = strings.TrimSuffix(mq.Topic, "/")
		if mq.ClientID == "" {
			mq.ClientID = defaultMQTTTopicRoot + "-" + d.Name
		}
	}

	if mr := cfg.Mirror; mr != nil && mr.TimeoutMs <= 0 {
		mr.TimeoutMs = d.TimeoutMs
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}
