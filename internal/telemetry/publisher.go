// internal/telemetry/publisher.go
package telemetry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tamzrod/kvlogger/internal/config"
	"github.com/tamzrod/kvlogger/internal/logger"
	"github.com/tamzrod/kvlogger/internal/poller"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second

	statusOffline = "offline"
)

// client is the subset of pahomqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Publisher pushes poll results to an MQTT broker.
type Publisher struct {
	cli    client
	device string
	topic  string
	qos    byte
	log    *logger.Logger

	lastStatus string
}

// Connect dials the broker described by cfg. The broker keeps the last
// will on <topic>/status so subscribers see "offline" if we vanish.
// device names the PLC in every status message, the will included.
func Connect(cfg *config.MQTTConfig, device string, log *logger.Logger) (*Publisher, error) {
	if cfg == nil {
		return nil, errors.New("telemetry: mqtt config required")
	}
	if log == nil {
		log = logger.Nop()
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL(cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)

	will, _ := BuildStatusPayload(device, statusOffline, nil, time.Now())
	opts.SetBinaryWill(cfg.Topic+"/status", will, cfg.QoS, true)

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warnw("mqtt_connection_lost", "err", err)
	})
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		log.Infow("mqtt_connected", "broker", cfg.Broker)
	})

	c := pahomqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// ConnectRetry keeps trying in the background
		log.Warnw("mqtt_connect_pending", "broker", cfg.Broker)
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("telemetry: connect %s: %w", cfg.Broker, err)
	}

	return NewPublisher(c, device, cfg.Topic, cfg.QoS, log), nil
}

// NewPublisher wraps an existing client.
func NewPublisher(c client, device, topic string, qos byte, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{
		cli:    c,
		device: device,
		topic:  strings.TrimSuffix(topic, "/"),
		qos:    qos,
		log:    log,
	}
}

// Write publishes the values of a good cycle and the status when it changes.
func (p *Publisher) Write(res poller.PollResult) error {
	var errs []error

	if st := res.Status.String(); st != p.lastStatus {
		device := p.device
		if device == "" {
			device = res.DeviceID
		}
		payload, err := BuildStatusPayload(device, st, res.Err, res.At)
		if err == nil {
			err = p.publish(p.topic+"/status", true, payload)
		}
		if err != nil {
			errs = append(errs, err)
		} else {
			p.lastStatus = st
		}
	}

	if res.Err == nil {
		payload, err := BuildPayload(res)
		if err == nil {
			err = p.publish(p.topic+"/values", false, payload)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (p *Publisher) publish(topic string, retained bool, payload []byte) error {
	t := p.cli.Publish(topic, p.qos, retained, payload)
	if !t.WaitTimeout(publishTimeout) {
		return fmt.Errorf("telemetry: publish %s: timeout", topic)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("telemetry: publish %s: %w", topic, err)
	}
	return nil
}

// Close publishes offline and disconnects.
func (p *Publisher) Close() {
	if payload, err := BuildStatusPayload(p.device, statusOffline, nil, time.Now()); err == nil {
		_ = p.publish(p.topic+"/status", true, payload)
	}
	p.cli.Disconnect(250)
}

// brokerURL accepts a bare host or a full URL.
func brokerURL(broker string, port int) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return fmt.Sprintf("tcp://%s:%d", broker, port)
}
