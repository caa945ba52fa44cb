// Package eddn subscribes to the community live feed relay and turns
// relayed ring-signal broadcasts into hotspot records. The feed is
// advisory: every failure path degrades to local-database-only operation
// without blocking any other component.
package eddn

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/ringscout/internal/conf"
	"github.com/tphakala/ringscout/internal/datastore"
	"github.com/tphakala/ringscout/internal/errors"
	"github.com/tphakala/ringscout/internal/logging"
	"github.com/tphakala/ringscout/internal/telemetry"
)

var (
	logger      *slog.Logger
	closeLogger func() error
)

func init() {
	var err error
	logger, closeLogger, err = logging.NewFileLogger("logs/eddn.log", "eddn", slog.LevelInfo)
	if err != nil || logger == nil {
		logger = logging.ForService("eddn")
		closeLogger = func() error { return nil }
	}
}

// RecordSink receives normalized hotspot records from the feed. The ingest
// pipeline implements it; tests substitute a capture.
type RecordSink interface {
	Record(rec *datastore.Hotspot)
}

// Listener maintains the subscription to the relay broker. It owns its
// reconnect loop; Stop closes the connection and stops any pending retry.
type Listener struct {
	config         conf.LiveFeedSettings
	clientID       string
	sink           RecordSink
	metrics        *telemetry.FeedMetrics
	internalClient mqtt.Client
	seen           *seenCache

	mu              sync.Mutex
	lastConnAttempt time.Time
	reconnectTimer  *time.Timer
	reconnectStop   chan struct{}
	stopOnce        sync.Once
}

// NewListener creates a feed listener from the loaded settings. Connect
// must be called before any messages arrive. metrics may be nil.
func NewListener(settings *conf.Settings, sink RecordSink, metrics *telemetry.FeedMetrics) *Listener {
	return &Listener{
		config:        settings.LiveFeed,
		clientID:      settings.Main.Name,
		sink:          sink,
		metrics:       metrics,
		seen:          newSeenCache(settings.LiveFeed.SeenCacheSize),
		reconnectStop: make(chan struct{}),
	}
}

// Connect establishes the broker connection and subscribes to the journal
// topic. Repeated calls within the reconnect cooldown are rejected so a
// flapping broker cannot cause a tight connect loop.
func (l *Listener) Connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.New(err).
			Component("eddn").
			Category(errors.CategoryFeedConnection).
			Build()
	}
	if since := time.Since(l.lastConnAttempt); since < l.config.ReconnectCooldown {
		return errors.Newf("connection attempt too recent, last attempt was %v ago", since).
			Component("eddn").
			Category(errors.CategoryFeedConnection).
			Build()
	}
	l.lastConnAttempt = time.Now()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(l.config.Broker)
	opts.SetClientID(fmt.Sprintf("%s-feed", l.clientID))
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false) // reconnection is handled by our own backoff loop
	opts.SetOnConnectHandler(l.onConnect)
	opts.SetConnectionLostHandler(l.onConnectionLost)

	l.internalClient = mqtt.NewClient(opts)

	timeout := l.config.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// The caller's deadline bounds the handshake wait, so shutdown never
	// sits behind a slow broker.
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	token := l.internalClient.Connect()
	if !token.WaitTimeout(timeout) {
		return errors.Newf("connection timeout after %v", timeout).
			Component("eddn").
			Category(errors.CategoryTimeout).
			Context("broker", l.config.Broker).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("eddn").
			Category(errors.CategoryFeedConnection).
			Context("broker", l.config.Broker).
			Build()
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (l *Listener) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.internalClient != nil && l.internalClient.IsConnected()
}

// Stop disconnects from the broker and cancels any pending reconnect.
// Safe to call more than once.
func (l *Listener) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		if l.reconnectTimer != nil {
			l.reconnectTimer.Stop()
		}
		client := l.internalClient
		l.mu.Unlock()

		close(l.reconnectStop)
		if client != nil && client.IsConnected() {
			client.Disconnect(250)
		}
		_ = closeLogger()
	})
}

func (l *Listener) onConnect(client mqtt.Client) {
	logger.Info("connected to live feed broker", "broker", l.config.Broker)
	if l.metrics != nil {
		l.metrics.ConnectionStatus.Set(1)
	}
	token := client.Subscribe(l.config.Topic, 0, l.onMessage)
	if !token.WaitTimeout(10 * time.Second) {
		logger.Error("subscribe timeout", "topic", l.config.Topic)
		return
	}
	if err := token.Error(); err != nil {
		logger.Error("subscribe failed", "topic", l.config.Topic, "error", err)
	}
}

func (l *Listener) onConnectionLost(_ mqtt.Client, err error) {
	logger.Warn("live feed connection lost, running on local data only", "error", err)
	if l.metrics != nil {
		l.metrics.ConnectionStatus.Set(0)
	}
	l.startReconnectTimer()
}

func (l *Listener) onMessage(_ mqtt.Client, msg mqtt.Message) {
	l.Handle(msg.Payload())
}

// Handle normalizes one raw payload and forwards fresh records to the sink.
// Malformed payloads are logged and dropped; the subscription keeps running.
func (l *Listener) Handle(payload []byte) {
	records, err := Normalize(payload)
	if err != nil {
		logger.Warn("skipping malformed feed message", "error", err)
		if l.metrics != nil {
			l.metrics.MessagesRejected.Inc()
		}
		return
	}
	for _, rec := range records {
		if !l.seen.firstSighting(rec) {
			if l.metrics != nil {
				l.metrics.MessagesRejected.Inc()
			}
			continue
		}
		if l.metrics != nil {
			l.metrics.MessagesAccepted.Inc()
		}
		l.sink.Record(rec)
	}
}

func (l *Listener) startReconnectTimer() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reconnectTimer = time.AfterFunc(time.Second, func() {
		select {
		case <-l.reconnectStop:
			return
		default:
			l.reconnectWithBackoff()
		}
	})
}

func (l *Listener) reconnectWithBackoff() {
	backoff := time.Second
	maxBackoff := 5 * time.Minute

	for {
		if l.metrics != nil {
			l.metrics.ReconnectAttempts.Inc()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := l.Connect(ctx)
		cancel()

		if err == nil {
			logger.Info("reconnected to live feed broker")
			return
		}
		logger.Warn("feed reconnect failed", "error", err, "retry_in", backoff)

		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		case <-l.reconnectStop:
			return
		}
	}
}
