// internal/config/normalize_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNormalize_Defaults(t *testing.T) {
	cfg := baseConfig()
	cfg.Device.Name = ""
	cfg.MQTT = &MQTTConfig{Broker: "tcp://broker"}
	cfg.Mirror = &MirrorConfig{Endpoint: "127.0.0.1:502"}
	Normalize(cfg)

	if cfg.Device.Name != "192.168.0.10" {
		t.Fatalf("device name = %q", cfg.Device.Name)
	}
	if cfg.Device.TimeoutMs != DefaultTimeoutMs {
		t.Fatalf("timeout = %d", cfg.Device.TimeoutMs)
	}
	if cfg.Poll.IntervalMs != DefaultIntervalMs || cfg.Poll.WindowSize != DefaultWindowSize {
		t.Fatalf("poll = %+v", cfg.Poll)
	}
	if cfg.Measurements[0].Count != 1 || cfg.Measurements[0].Format != ".D" {
		t.Fatalf("measurement = %+v", cfg.Measurements[0])
	}
	if cfg.HTTP.Listen != DefaultListen {
		t.Fatalf("listen = %q", cfg.HTTP.Listen)
	}
	if cfg.MQTT.Port != DefaultMQTTPort || cfg.MQTT.Topic != "kvlogger/192.168.0.10" {
		t.Fatalf("mqtt = %+v", cfg.MQTT)
	}
	if cfg.MQTT.ClientID != "kvlogger-192.168.0.10" {
		t.Fatalf("client id = %q", cfg.MQTT.ClientID)
	}
	if cfg.Mirror.TimeoutMs != DefaultTimeoutMs {
		t.Fatalf("mirror timeout = %d", cfg.Mirror.TimeoutMs)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
}

func TestNormalize_TruncatesDeviceName(t *testing.T) {
	cfg := baseConfig()
	cfg.Device.Name = "a-very-long-device-name"
	Normalize(cfg)

	if len(cfg.Device.Name) != DeviceNameMaxChars {
		t.Fatalf("name %q not truncated", cfg.Device.Name)
	}
}

func TestConversions(t *testing.T) {
	cfg := baseConfig()
	cfg.Measurements[0].Label = "oven"
	cfg.Measurements = append(cfg.Measurements, MeasurementConfig{
		Name: "setpoint", Address: "DM2000", Format: "S", Label: "oven",
	})
	Normalize(cfg)

	addr := cfg.Address()
	if addr.String() != "192.168.0.10:8501" || addr.Timeout != 2*time.Second {
		t.Fatalf("address = %+v", addr)
	}
	if cfg.PollInterval() != time.Second {
		t.Fatalf("interval = %v", cfg.PollInterval())
	}

	descs, err := cfg.Descriptors()
	if err != nil {
		t.Fatalf("descriptors: %v", err)
	}
	if len(descs) != 3 || descs[1].Count != 4 || descs[1].Format != ".U" {
		t.Fatalf("descriptors = %+v", descs)
	}

	groups := cfg.Groups()
	if len(groups) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].Label != "oven" || len(groups[0].Measurements) != 2 {
		t.Fatalf("first group = %+v", groups[0])
	}
	if groups[1].Label != DefaultGroup || groups[1].Measurements[0].Name != "count" {
		t.Fatalf("second group = %+v", groups[1])
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kvlogger.yaml")

	doc := `
device:
  name: line1
  host: 10.0.0.5
  port: 8501
poll:
  interval_ms: 500
measurements:
  - name: temp
    address: DM1000
    format: D
    label: oven
    unit: C
mirror:
  endpoint: 127.0.0.1:502
  unit_id: 1
  status_slot: 0
  status_unit_id: 255
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Device.Host != "10.0.0.5" || cfg.Poll.IntervalMs != 500 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Measurements[0].Unit != "C" {
		t.Fatalf("measurement = %+v", cfg.Measurements[0])
	}
	if cfg.Mirror == nil || cfg.Mirror.StatusSlot == nil || *cfg.Mirror.StatusUnitID != 255 {
		t.Fatalf("mirror = %+v", cfg.Mirror)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("device:\n  hostname: x\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}
