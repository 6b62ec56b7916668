package events

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"
)

const DefaultTopic = "handoff.events"

// Router bridges the in-process Stream onto a watermill bus so external
// collaborators (persistence, UIs) can consume events with watermill handlers.
type Router struct {
	logger     watermill.LoggerAdapter
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
}

type RouterOption func(*Router)

func WithLogger(logger watermill.LoggerAdapter) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

func WithPubSub(publisher message.Publisher, subscriber message.Subscriber) RouterOption {
	return func(r *Router) {
		r.Publisher = publisher
		r.Subscriber = subscriber
	}
}

func WithVerbose(verbose bool) RouterOption {
	return func(r *Router) {
		if verbose {
			r.logger = NewWatermillLogger(log.Logger)
		}
	}
}

// NewRouter creates a router backed by an in-memory gochannel pubsub unless
// WithPubSub provides another transport.
func NewRouter(options ...RouterOption) (*Router, error) {
	ret := &Router{
		logger: watermill.NopLogger{},
	}
	for _, o := range options {
		o(ret)
	}

	if ret.Publisher == nil || ret.Subscriber == nil {
		goPubSub := gochannel.NewGoChannel(gochannel.Config{
			BlockPublishUntilSubscriberAck: true,
		}, ret.logger)
		ret.Publisher = goPubSub
		ret.Subscriber = goPubSub
	}

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, err
	}
	ret.router = router
	return ret, nil
}

func (r *Router) AddHandler(name string, topic string, f func(msg *message.Message) error) {
	r.router.AddNoPublisherHandler(name, topic, r.Subscriber, f)
}

func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

func (r *Router) Close() error {
	if err := r.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("events: failed to close publisher")
	}
	if err := r.router.Close(); err != nil {
		log.Error().Err(err).Msg("events: failed to close router")
	}
	return nil
}

// WatermillHandler forwards stream events as JSON messages to a watermill
// publisher. It runs on the subscription goroutine, so a blocking transport
// only ever delays this subscriber.
type WatermillHandler struct {
	publisher message.Publisher
	topic     string
}

func NewWatermillHandler(publisher message.Publisher, topic string) *WatermillHandler {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillHandler{publisher: publisher, topic: topic}
}

func (w *WatermillHandler) OnEvent(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("kind", string(e.Kind)).Msg("events: failed to marshal event")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("run_id", e.RunID)
	// consumers correlating across services key on correlation_id
	msg.Metadata.Set("correlation_id", e.RunID)
	msg.Metadata.Set("kind", string(e.Kind))
	msg.Metadata.Set("sequence_number", strconv.FormatUint(e.Seq, 10))

	if err := w.publisher.Publish(w.topic, msg); err != nil {
		log.Error().Err(err).Str("topic", w.topic).Msg("events: failed to publish event to watermill")
		return
	}
	log.Trace().Str("topic", w.topic).Str("kind", string(e.Kind)).Msg("events: published event to watermill")
}

var _ Handler = (*WatermillHandler)(nil)

// EventFromMessage decodes a message produced by WatermillHandler.
func EventFromMessage(msg *message.Message) (Event, error) {
	var e Event
	err := json.Unmarshal(msg.Payload, &e)
	return e, err
}
