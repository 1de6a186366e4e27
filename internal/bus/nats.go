package bus

import (
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATSBridge republishes bus events as JSON on "<subject>.<event type>".
type NATSBridge struct {
	Conn    *nats.Conn
	Subject string
	log     *slog.Logger
}

func NewNATSBridge(url, subject string, logger *slog.Logger) (*NATSBridge, error) {
	conn, err := nats.Connect(url, nats.Name("pulsemon"))
	if err != nil {
		return nil, err
	}
	if subject == "" {
		subject = "pulsemon"
	}
	return &NATSBridge{Conn: conn, Subject: subject, log: logger}, nil
}

func (n *NATSBridge) Handle(evt Event) {
	if err := n.Publish(n.Subject+"."+evt.Type, evt); err != nil {
		n.log.Warn("nats publish failed", "type", evt.Type, "err", err)
	}
}

func (n *NATSBridge) Publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return n.Conn.Publish(subject, data)
}

func (n *NATSBridge) Close() {
	if n.Conn != nil {
		if err := n.Conn.Drain(); err != nil {
			n.Conn.Close()
		}
	}
}
