// internal/config/config.go
package config

type Config struct {
	Device       DeviceConfig        `yaml:"device"`
	Poll         PollConfig          `yaml:"poll"`
	Measurements []MeasurementConfig `yaml:"measurements"`
	HTTP         HTTPConfig          `yaml:"http"`
	History      HistoryConfig       `yaml:"history"`
	MQTT         *MQTTConfig         `yaml:"mqtt"`   // optional
	Mirror       *MirrorConfig       `yaml:"mirror"` // optional
	Log          LogConfig           `yaml:"log"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	Name      string `yaml:"name"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
	WindowSize int `yaml:"window_size"` // points kept per key for live charts
}

// ---- MEASUREMENTS ----

// MeasurementConfig is one named register read. Order in the file is
// the poll order.
type MeasurementConfig struct {
	Name    string `yaml:"name" json:"name"`
	Address string `yaml:"address" json:"address"` // e.g. DM1000
	Format  string `yaml:"format" json:"format"`   // U S D L H
	Count   int    `yaml:"count" json:"count"`
	Label   string `yaml:"label" json:"label,omitempty"` // display group
	Unit    string `yaml:"unit" json:"unit,omitempty"`
}

// ---- HTTP ----

type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// ---- HISTORY ----

type HistoryConfig struct {
	Path          string `yaml:"path"` // empty disables history
	RetentionDays int    `yaml:"retention_days"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
}

// ---- MODBUS MIRROR ----

type MirrorConfig struct {
	Endpoint    string `yaml:"endpoint"`
	UnitID      uint8  `yaml:"unit_id"`
	BaseAddress uint16 `yaml:"base_address"`
	TimeoutMs   int    `yaml:"timeout_ms"`

	// Device status block (optional, opt-in)
	StatusSlot   *uint16 `yaml:"status_slot"`
	StatusUnitID *uint8  `yaml:"status_unit_id"`
}

// ---- LOG ----

type LogConfig struct {
	Level string `yaml:"level"`
}
