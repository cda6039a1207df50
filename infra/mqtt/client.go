package mqtt

import (
	"context"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/cellsleep/infra/logger"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

type route struct {
	qos     byte
	handler paho.MessageHandler
}

// PahoClient is the broker connection shared by the network collaborator
// and the report listener. Subscriptions are replayed on every reconnect.
type PahoClient struct {
	cli    pahoClient
	cfg    Config
	logger logger.Logger

	mu     sync.Mutex
	routes map[string]route
}

// NewPahoClient connects to the MQTT broker.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{cfg: cfg, logger: log, routes: make(map[string]route)}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		pc.mu.Lock()
		defer pc.mu.Unlock()
		for filter, r := range pc.routes {
			if token := c.Subscribe(filter, r.qos, r.handler); token.Wait() && token.Error() != nil {
				log.Errorf("subscribe %s error: %v", filter, token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// Config returns the effective configuration.
func (p *PahoClient) Config() Config { return p.cfg }

// Subscribe registers handler for filter and subscribes immediately.
func (p *PahoClient) Subscribe(filter string, qos byte, handler paho.MessageHandler) error {
	p.mu.Lock()
	p.routes[filter] = route{qos: qos, handler: handler}
	p.mu.Unlock()
	if token := p.cli.Subscribe(filter, qos, handler); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Publish sends payload to topic, retrying with exponential backoff until
// MaxRetries is exhausted or ctx is done.
func (p *PahoClient) Publish(ctx context.Context, topic string, qos byte, payload []byte) error {
	backoff := time.Duration(p.cfg.BackoffMS) * time.Millisecond
	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt == p.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(1<<attempt)):
		}
	}
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
