package transport

import (
	"errors"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeToken struct {
	err      error
	complete bool
}

func (t *fakeToken) Wait() bool                     { return t.complete }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.complete }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type fakeClient struct {
	pahomqtt.Client
	token    *fakeToken
	topics   []string
	callback pahomqtt.MessageHandler
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token {
	c.topics = append(c.topics, topic)
	c.callback = callback
	return c.token
}

func TestOptions_BrokerURL(t *testing.T) {
	opts := Options{Host: "mqtt.local", Port: 1883}
	if got := opts.BrokerURL(); got != "tcp://mqtt.local:1883" {
		t.Errorf("BrokerURL() = %q", got)
	}
}

func TestSubscriber(t *testing.T) {
	client := &fakeClient{token: &fakeToken{complete: true}}
	sub := &subscriber{client: client}

	if err := sub.Subscribe("tele/#"); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if len(client.topics) != 1 || client.topics[0] != "tele/#" {
		t.Errorf("subscribed topics = %v", client.topics)
	}
	if client.callback != nil {
		t.Error("Subscribe() should rely on the default publish handler")
	}
}

func TestSubscriber_Errors(t *testing.T) {
	brokerErr := errors.New("not authorized")

	client := &fakeClient{token: &fakeToken{complete: true, err: brokerErr}}
	if err := (&subscriber{client: client}).Subscribe("tele/#"); !errors.Is(err, brokerErr) {
		t.Errorf("Subscribe() error = %v, want %v", err, brokerErr)
	}

	client = &fakeClient{token: &fakeToken{complete: false}}
	if err := (&subscriber{client: client}).Subscribe("tele/#"); err == nil {
		t.Error("Subscribe() should fail when the token times out")
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient(Options{Host: "127.0.0.1", Port: 1883, ClientID: "test", Username: "user", Password: "pw"}, nil, zap.NewNop())
	reader := client.OptionsReader()

	if got := reader.ClientID(); got != "test" {
		t.Errorf("ClientID() = %q", got)
	}
	if got := reader.Username(); got != "user" {
		t.Errorf("Username() = %q", got)
	}
	if !reader.Order() {
		t.Error("Order() = false, messages must be handled in order")
	}
	if !reader.AutoReconnect() {
		t.Error("AutoReconnect() = false")
	}
	if servers := reader.Servers(); len(servers) != 1 || servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers() = %v", servers)
	}
}

func TestPahoLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := pahoLogger{log: zap.New(core).Warn}

	l.Println("[client]", "connection lost")
	l.Printf("[net] %s", "read error\n")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if entries[0].Message != "[client] connection lost" {
		t.Errorf("Println message = %q", entries[0].Message)
	}
	if entries[1].Message != "[net] read error" {
		t.Errorf("Printf message = %q", entries[1].Message)
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", entries[0].Level)
	}
}
