// Package broker carries room events between services over NATS.
package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/monopoly-services/internal/comm"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const TopicGameEvents = "game.events"

type publisher interface {
	Publish(subj string, data []byte) error
}

type Broker struct {
	Conn       *nats.Conn
	InstanceId string
	Topic      string

	pub publisher
	now func() time.Time
}

func NewBroker(conn *nats.Conn, instanceId string) *Broker {
	return &Broker{
		Conn:       conn,
		InstanceId: instanceId,
		Topic:      TopicGameEvents,
		pub:        conn,
		now:        time.Now,
	}
}

// PublishGameEvent wraps event in a comm.GameEvent envelope and publishes it.
// Failures are logged; the room has already seen the event.
func (b *Broker) PublishGameEvent(gameId uint64, playerId int64, eventType string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Errorf("unable to marshal %s event for game %d: %s", eventType, gameId, err)
		return
	}

	msg := &comm.GameEvent{
		Type:       eventType,
		GameId:     gameId,
		PlayerId:   playerId,
		InstanceId: b.InstanceId,
		Data:       data,
		Timestamp:  b.now().UTC(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	b.Publish(b.Topic, payload)
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.pub.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

// consume game events, every subscriber gets every event
func (b *Broker) Subscribe(topic string, handle func(*comm.GameEvent)) (*nats.Subscription, error) {
	return b.Conn.Subscribe(topic, handler(handle))
}

// consume game events, one member of queueGroup gets each event
func (b *Broker) QueueSubscribe(topic, queueGroup string, handle func(*comm.GameEvent)) (*nats.Subscription, error) {
	return b.Conn.QueueSubscribe(topic, queueGroup, handler(handle))
}

func handler(handle func(*comm.GameEvent)) nats.MsgHandler {
	return func(m *nats.Msg) {
		event, err := Decode(m.Data)
		if err != nil {
			log.Errorf("dropping message on %s: %s", m.Subject, err)
			return
		}
		handle(event)
	}
}

// Decode parses a published envelope.
func Decode(payload []byte) (*comm.GameEvent, error) {
	event := &comm.GameEvent{}
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("decode game event: %w", err)
	}
	if event.Type == "" || event.GameId == 0 {
		return nil, fmt.Errorf("game event missing type or game_id")
	}
	return event, nil
}
