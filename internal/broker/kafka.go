package broker

import (
	"context"
	"sync"

	"github.com/IBM/sarama"
	"github.com/robfig/cron/v3"

	"github.com/brandonto/topic-monitor/internal/logging"
)

// KafkaConfig configures the production Broker Adapter. Brokers is the
// Kafka bootstrap list; GroupID stands in for the "vpn" connection
// parameter — the nearest Kafka concept to a Solace VPN's logical
// partitioning of one physical broker into isolated message spaces.
type KafkaConfig struct {
	Brokers []string
	GroupID string
}

// KafkaAdapter is the production Broker Adapter backend, grounded on
// GoCodeAlone-modular/modules/eventbus/kafka.go's sarama-based engine.
type KafkaAdapter struct {
	cfg    KafkaConfig
	sink   Sink
	logger logging.Logger

	mu            sync.Mutex
	producer      sarama.SyncProducer
	consumerGroup sarama.ConsumerGroup
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	subscribed    map[string]bool

	ticker *cron.Cron
}

// NewKafkaAdapter constructs a KafkaAdapter. It does not connect until
// Connect is called.
func NewKafkaAdapter(cfg KafkaConfig, sink Sink, logger logging.Logger) *KafkaAdapter {
	return &KafkaAdapter{cfg: cfg, sink: sink, logger: logger, subscribed: make(map[string]bool)}
}

func (a *KafkaAdapter) Connect(ctx context.Context, creds Credentials) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.producer != nil {
		return NothingToDo
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	if creds.Username != "" {
		saramaConfig.Net.SASL.Enable = true
		saramaConfig.Net.SASL.User = creds.Username
		saramaConfig.Net.SASL.Password = creds.Password
	}

	producer, err := sarama.NewSyncProducer(a.cfg.Brokers, saramaConfig)
	if err != nil {
		a.logger.Error("kafka connect failed", "error", err)
		return Failure
	}

	groupID := a.cfg.GroupID
	if groupID == "" {
		groupID = creds.VPN
	}
	group, err := sarama.NewConsumerGroup(a.cfg.Brokers, groupID, saramaConfig)
	if err != nil {
		producer.Close()
		a.logger.Error("kafka consumer group create failed", "error", err)
		return Failure
	}

	a.producer = producer
	a.consumerGroup = group
	return Success
}

func (a *KafkaAdapter) Disconnect(_ context.Context) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.producer == nil {
		return NothingToDo
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	if err := a.consumerGroup.Close(); err != nil {
		a.logger.Error("kafka consumer group close failed", "error", err)
	}
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close failed", "error", err)
	}
	a.producer = nil
	a.consumerGroup = nil
	a.subscribed = make(map[string]bool)
	return Success
}

// Subscribe starts a Consume goroutine for topic and returns once it is
// started; it does not wait for the consumer group to join or confirm.
func (a *KafkaAdapter) Subscribe(ctx context.Context, topic string) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.consumerGroup == nil {
		return Failure
	}
	if a.subscribed[topic] {
		return NothingToDo
	}

	consumeCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	handler := &consumerHandler{sink: a.sink, logger: a.logger}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for {
			if err := a.consumerGroup.Consume(consumeCtx, []string{topic}, handler); err != nil {
				a.logger.Error("kafka consume error", "topic", topic, "error", err)
			}
			if consumeCtx.Err() != nil {
				return
			}
		}
	}()

	a.subscribed[topic] = true
	return Success
}

func (a *KafkaAdapter) Unsubscribe(_ context.Context, topic string) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.subscribed[topic] {
		return NothingToDo
	}
	delete(a.subscribed, topic)
	// Sarama's consumer group has no per-topic cancel, so this only forgets
	// the topic: its Consume goroutine is not stopped, and messages for the
	// topic still reach the Sink (the Engine drops them once the topic is
	// absent from its TopicEnvMap).
	return Success
}

func (a *KafkaAdapter) StartTickTimer(_ context.Context) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ticker != nil {
		return NothingToDo
	}
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(tickSchedule, a.sink.PushTick); err != nil {
		a.logger.Error("kafka tick timer schedule rejected", "error", err)
		return Failure
	}
	c.Start()
	a.ticker = c
	return Success
}

func (a *KafkaAdapter) StopTickTimer() Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ticker == nil {
		return NothingToDo
	}
	a.ticker.Stop()
	a.ticker = nil
	return Success
}

// consumerHandler implements sarama.ConsumerGroupHandler, translating
// Kafka messages into OwnedMessage work entries whose Release commits the
// message's offset — freeing the broker-owned buffer exactly once.
type consumerHandler struct {
	sink   Sink
	logger logging.Logger
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			owned := &OwnedMessage{
				Topic:   msg.Topic,
				Payload: msg.Value,
				release: func() { session.MarkMessage(msg, "") },
			}
			h.sink.PushMessage(owned)
		}
	}
}
