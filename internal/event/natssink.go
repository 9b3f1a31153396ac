package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/thomassorensen2650/unsinfra/internal/logging"
)

// NATSSink publishes bus events to a NATS subject for external observers
// (dashboards, audit trails). It is strictly additive: a connection failure
// here never affects in-process delivery, and the sink never mediates
// delivery between in-process subscribers, so attaching it does not
// introduce any multi-node coordination into the core (spec's non-goals
// exclude distributed consensus, not passive external fan-out).
//
// Adapted from the teacher's eventbus.Bus.SetJetStream / publishToJetStream:
// same fire-and-forget philosophy, same subject-per-event-type scheme.
type NATSSink struct {
	subjectPrefix string
	log           *logging.Logger

	conn *nats.Conn
}

// NewNATSSink dials url in the background with exponential backoff
// (grounded on the teacher's own NATS reconnect handling in
// internal/daemon/nats.go) and returns immediately; Publish is a no-op
// until the connection succeeds.
func NewNATSSink(url, subjectPrefix string, log *logging.Logger) *NATSSink {
	if log == nil {
		log = logging.New("event.natssink")
	}
	s := &NATSSink{subjectPrefix: subjectPrefix, log: log}

	go func() {
		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = 0 // retry forever; this is a supplementary sink

		_ = backoff.Retry(func() error {
			conn, err := nats.Connect(url, nats.MaxReconnects(-1))
			if err != nil {
				s.log.Warnf("nats connect failed, retrying: %v", err)
				return err
			}
			s.conn = conn
			s.log.Infof("nats sink connected to %s", url)
			return nil
		}, b)
	}()

	return s
}

// Publish marshals e's Meta (id and timestamp) plus a publish time and
// publishes it fire-and-forget to "<prefix>.<EventType>"; the event's payload
// fields are not included. Errors are logged, never propagated — JetStream
// fan-out is supplementary to local dispatch, not a prerequisite for it.
func (s *NATSSink) Publish(e Event) {
	if s.conn == nil {
		return
	}

	subject := fmt.Sprintf("%s.%s", s.subjectPrefix, reflect.TypeOf(e).Name())

	data, err := json.Marshal(struct {
		Meta
		PublishedAt time.Time `json:"published_at"`
	}{Meta: e.EventMeta(), PublishedAt: time.Now()})
	if err != nil {
		s.log.Warnf("nats sink: marshal failed for %s: %v", subject, err)
		return
	}

	if err := s.conn.Publish(subject, data); err != nil {
		s.log.Warnf("nats sink: publish to %s failed: %v", subject, err)
	}
}

// Close drains and closes the underlying connection, if any.
func (s *NATSSink) Close() {
	if s.conn != nil {
		s.conn.Drain()
	}
}
