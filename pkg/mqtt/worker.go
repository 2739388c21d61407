// Package mqtt adapts the paho client into the small broker boundary the
// dashboard engine works against.
package mqtt

import (
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/lithammer/shortuuid/v3"
	log "github.com/sirupsen/logrus"
)

const DefaultQOS = 1
const quiescenceMs = 100
const clientIDPrefix = "mqtt-dashboard-"

type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
)

type ConnectionCallback func(status ConnectionStatus)

// MessageHandler receives every message on every subscribed filter. Called
// on paho's network goroutine; implementations must not block.
type MessageHandler func(topic string, payload []byte, retained bool)

// Worker wraps a paho client: connection lifecycle, subscription and
// publish plumbing, and connection status fan-out. Stop runs on the GUI
// goroutine while Subscribe and Unsubscribe come from the engine
// dispatcher, so the mutable state sits behind a mutex.
type Worker struct {
	mu           sync.Mutex
	client       MQTT.Client
	mqttOpts     *MQTT.ClientOptions
	onMessage    MessageHandler
	connCb       []ConnectionCallback
	retryOnStart bool
	started      bool
}

type WorkerOption func(*Worker)

func WithConnectionCallback(cb ConnectionCallback) WorkerOption {
	return func(w *Worker) {
		w.connCb = append(w.connCb, cb)
	}
}

// WithStartupRetry keeps retrying the first connection; the paho library
// only auto-reconnects after it has connected once.
func WithStartupRetry(enable bool) WorkerOption {
	return func(w *Worker) {
		w.retryOnStart = enable
	}
}

func NewWorker(mqttOpts *MQTT.ClientOptions, onMessage MessageHandler, opts ...WorkerOption) *Worker {
	w := &Worker{mqttOpts: mqttOpts, onMessage: onMessage, retryOnStart: true}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) getClient() MQTT.Client {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.client
}

func (w *Worker) IsConnected() bool {
	client := w.getClient()
	return client != nil && client.IsConnected()
}

// SetOpts replaces the client options. Only allowed while stopped; the
// broker settings dialog calls this before Start.
func (w *Worker) SetOpts(mqttOpts *MQTT.ClientOptions) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		log.Warn("ignoring options change on a running worker")
		return
	}
	w.mqttOpts = mqttOpts
}

func (w *Worker) AddConnectionCB(cb ConnectionCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connCb = append(w.connCb, cb)
}

func (w *Worker) Subscribe(filter string) error {
	client := w.getClient()
	if client == nil || filter == "" {
		return nil
	}
	log.Infof("Sub topic %s, Qos: %d", filter, DefaultQOS)
	if token := client.Subscribe(filter, DefaultQOS, w.onBrokerMessage); token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (w *Worker) Unsubscribe(filter string) error {
	client := w.getClient()
	if client == nil || filter == "" {
		return nil
	}
	log.Infof("UnSub topic %s", filter)
	if token := client.Unsubscribe(filter); token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (w *Worker) Publish(topic string, payload []byte, qos byte, retain bool) {
	client := w.getClient()
	if client == nil {
		log.Warnf("publish skipped, no broker connection (topic: %s)", topic)
		return
	}
	client.Publish(topic, qos, retain, payload)
}

func (w *Worker) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	if w.mqttOpts == nil {
		w.mu.Unlock()
		log.Warn("no broker options configured, not starting")
		return
	}
	w.started = true

	if w.mqttOpts.ClientID == "" {
		w.mqttOpts.SetClientID(randomClientID())
	}
	w.mqttOpts.SetAutoReconnect(true)
	w.mqttOpts.SetMaxReconnectInterval(45 * time.Second)
	w.mqttOpts.SetConnectionLostHandler(w.onBrokerDisconnect)
	w.mqttOpts.SetOnConnectHandler(w.onBrokerConnect)

	if w.client == nil {
		w.client = MQTT.NewClient(w.mqttOpts)
	}
	w.mu.Unlock()

	w.startConnect()
}

// Stop disconnects with a short quiescence so in-flight handlers drain
// before the client goes away.
func (w *Worker) Stop() {
	w.mu.Lock()
	client := w.client
	w.client = nil
	w.started = false
	w.mu.Unlock()

	if client != nil {
		client.Disconnect(quiescenceMs)
	}
}

func (w *Worker) startConnect() {
	// on first connection the library doesn't retry...do it manually
	go func() {
		client := w.getClient()
		if client == nil {
			return
		}
		client.Connect()
		if !w.retryOnStart {
			return
		}
		retry := time.NewTicker(30 * time.Second)
		defer retry.Stop()

		for range retry.C {
			client := w.getClient()
			if client == nil || client.IsConnected() {
				return
			}
			if token := client.Connect(); token.Wait() && token.Error() != nil {
				log.Info("failed connection to broker retrying...")
			}
		}
	}()
}

func (w *Worker) onBrokerMessage(client MQTT.Client, msg MQTT.Message) {
	if w.onMessage != nil {
		w.onMessage(msg.Topic(), msg.Payload(), msg.Retained())
	}
}

func (w *Worker) callbacks() []ConnectionCallback {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]ConnectionCallback(nil), w.connCb...)
}

func (w *Worker) onBrokerConnect(client MQTT.Client) {
	for _, cb := range w.callbacks() {
		if cb != nil {
			cb(ConnectionStatusConnected)
		}
	}
	log.Debug("BROKER connected!")
}

func (w *Worker) onBrokerDisconnect(client MQTT.Client, err error) {
	for _, cb := range w.callbacks() {
		if cb != nil {
			cb(ConnectionStatusDisconnected)
		}
	}
	log.Debug("BROKER disconnected !", err)
}

func randomClientID() string {
	id := clientIDPrefix + shortuuid.New()
	log.Debug("ID: ", id)
	return id
}
