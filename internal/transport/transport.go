package transport

import (
	"context"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	subscribeTimeout  = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds
	keepAlive         = 60 * time.Second
	maxReconnectDelay = 2 * time.Minute
)

// Subscriber is the part of the MQTT client a Handler needs on (re)connect.
type Subscriber interface {
	Subscribe(topic string) error
}

// Handler receives connection notifications and messages. OnConnect runs
// after every successful (re)connect since subscriptions do not survive one.
// OnMessage runs once per message, in delivery order, never concurrently.
type Handler interface {
	OnConnect(sub Subscriber) error
	OnMessage(topic string, payload []byte)
}

type Options struct {
	Host     string
	Port     int
	ClientID string
	Username string
	Password string
}

func (o Options) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", o.Host, o.Port)
}

func NewClient(opts Options, h Handler, log *zap.Logger) pahomqtt.Client {
	mqttOpts := pahomqtt.
		NewClientOptions().
		SetClientID(opts.ClientID).
		AddBroker(opts.BrokerURL()).
		SetCleanSession(true).
		SetOrderMatters(true).
		SetKeepAlive(keepAlive).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetMaxReconnectInterval(maxReconnectDelay).
		SetOnConnectHandler(func(c pahomqtt.Client) {
			log.Info("Connected to MQTT server", zap.String("broker", opts.BrokerURL()))
			if err := h.OnConnect(&subscriber{client: c}); err != nil {
				log.Error("Failed to handle connect", zap.Error(err))
			}
		}).
		SetConnectionLostHandler(func(c pahomqtt.Client, err error) {
			log.Error("Connection lost", zap.Error(err))
		}).
		SetReconnectingHandler(func(c pahomqtt.Client, _ *pahomqtt.ClientOptions) {
			log.Info("Reconnecting to MQTT server")
		}).
		SetDefaultPublishHandler(func(c pahomqtt.Client, m pahomqtt.Message) {
			h.OnMessage(m.Topic(), m.Payload())
		})

	if opts.Username != "" {
		mqttOpts.SetUsername(opts.Username)
		mqttOpts.SetPassword(opts.Password)
	}

	return pahomqtt.NewClient(mqttOpts)
}

// Connect blocks until the first connection attempt succeeds or ctx is done.
// Later reconnects are left to paho.
func Connect(ctx context.Context, client pahomqtt.Client) error {
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT server: %w", err)
	}
	return nil
}

func Disconnect(client pahomqtt.Client) {
	client.Disconnect(disconnectQuiesce)
}

type subscriber struct {
	client pahomqtt.Client
}

// Subscribe passes a nil callback so messages reach the default publish
// handler, which keeps delivery on one ordered path.
func (s *subscriber) Subscribe(topic string) error {
	token := s.client.Subscribe(topic, 0, nil)
	if !token.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("failed to subscribe to %s: timeout after %v", topic, subscribeTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	return nil
}
