// Package notify fans newly logged door events out over NATS.
package notify

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/types"
	jsonpkg "github.com/BrandonDHaskell/Portunus/doorsync/internal/pkg/json"
)

// SubjectPrefix is followed by the controller id.
const SubjectPrefix = "doorsync.events"

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

type Publisher struct {
	conn   Conn
	logger logrus.FieldLogger
}

// Connect dials the server at url. An empty url returns a publisher that
// drops everything.
func Connect(url, token string, logger logrus.FieldLogger) (*Publisher, error) {
	if url == "" {
		return NewPublisher(nil, logger), nil
	}

	opts := []nats.Option{
		nats.Name("doorsync"),
		nats.MaxReconnects(-1),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	logger.WithField("url", nc.ConnectedUrl()).Info("connected to nats")
	return NewPublisher(nc, logger), nil
}

// NewPublisher wraps an existing connection; conn may be nil.
func NewPublisher(conn Conn, logger logrus.FieldLogger) *Publisher {
	return &Publisher{conn: conn, logger: logger.WithField("component", "notify")}
}

func Subject(controllerID uint32) string {
	return fmt.Sprintf("%s.%d", SubjectPrefix, controllerID)
}

// PublishEvents sends one message per record. It stops at the first failure.
func (p *Publisher) PublishEvents(ctx context.Context, controllerID uint32, recs []types.EventRecord) error {
	if p.conn == nil {
		return nil
	}
	subject := Subject(controllerID)
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := jsonpkg.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode event %d: %w", rec.EventID, err)
		}
		if err := p.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("publish %s: %w", subject, err)
		}
	}
	p.logger.WithFields(logrus.Fields{"controller_id": controllerID, "count": len(recs)}).Debug("published events")
	return nil
}

// Close drains pending messages.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
