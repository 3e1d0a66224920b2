package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"hyperrecruit/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ 提供消息队列功能，承载异步评分事件
type RabbitMQ struct {
	conn        *amqp.Connection
	channelPool sync.Pool
	declared    map[string]bool // 记录已声明的exchange/queue/binding，避免重复声明
	declaredMu  sync.Mutex
	cfg         *config.RabbitMQConfig
}

// NewRabbitMQ 创建RabbitMQ客户端
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器 (%s): %w", cfg.URL, err)
	}

	mq := &RabbitMQ{
		conn:     conn,
		declared: make(map[string]bool),
		cfg:      cfg,
	}

	mq.channelPool = sync.Pool{
		New: func() interface{} {
			ch, err := conn.Channel()
			if err != nil {
				log.Printf("创建RabbitMQ通道失败: %v", err)
				return nil
			}
			return ch
		},
	}

	return mq, nil
}

// getChannel 从池中取一个可用通道，失败时新建
func (r *RabbitMQ) getChannel() *amqp.Channel {
	if ch, ok := r.channelPool.Get().(*amqp.Channel); ok && ch != nil && !ch.IsClosed() {
		return ch
	}
	ch, err := r.conn.Channel()
	if err != nil {
		log.Printf("创建RabbitMQ通道失败: %v", err)
		return nil
	}
	return ch
}

// putChannel 归还通道到池中
func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil && !ch.IsClosed() {
		r.channelPool.Put(ch)
	}
}

// Close 关闭连接
func (r *RabbitMQ) Close() error {
	if r.conn != nil && !r.conn.IsClosed() {
		return r.conn.Close()
	}
	return nil
}

// EnsureExchange 确保交换机存在
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	r.declaredMu.Lock()
	defer r.declaredMu.Unlock()
	if r.declared["ex:"+exchangeName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("获取RabbitMQ通道失败")
	}
	defer r.putChannel(ch)

	if err := ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("声明交换机 %s 失败: %w", exchangeName, err)
	}
	r.declared["ex:"+exchangeName] = true
	return nil
}

// EnsureQueue 确保队列存在
func (r *RabbitMQ) EnsureQueue(queueName string, durable bool) error {
	r.declaredMu.Lock()
	defer r.declaredMu.Unlock()
	if r.declared["q:"+queueName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("获取RabbitMQ通道失败")
	}
	defer r.putChannel(ch)

	if _, err := ch.QueueDeclare(queueName, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("声明队列 %s 失败: %w", queueName, err)
	}
	r.declared["q:"+queueName] = true
	return nil
}

// BindQueue 绑定队列到交换机
func (r *RabbitMQ) BindQueue(queueName, exchangeName, routingKey string) error {
	r.declaredMu.Lock()
	defer r.declaredMu.Unlock()
	bindKey := fmt.Sprintf("bind:%s:%s:%s", exchangeName, queueName, routingKey)
	if r.declared[bindKey] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("获取RabbitMQ通道失败")
	}
	defer r.putChannel(ch)

	if err := ch.QueueBind(queueName, routingKey, exchangeName, false, nil); err != nil {
		return fmt.Errorf("绑定队列 %s 到交换机 %s 失败: %w", queueName, exchangeName, err)
	}
	r.declared[bindKey] = true
	return nil
}

// PublishMessage 发布消息
func (r *RabbitMQ) PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error {
	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("获取RabbitMQ通道失败")
	}
	defer r.putChannel(ch)

	deliveryMode := amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}

	err := ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: deliveryMode,
		Timestamp:    time.Now(),
		Body:         message,
	})
	if err != nil {
		return fmt.Errorf("发布消息到 %s/%s 失败: %w", exchangeName, routingKey, err)
	}
	return nil
}

// PublishJSON 发布JSON格式消息
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}
	return r.PublishMessage(ctx, exchangeName, routingKey, body, persistent)
}

// SetupScoringTopology 声明评分事件的交换机、队列和绑定
func (r *RabbitMQ) SetupScoringTopology() error {
	if err := r.EnsureExchange(r.cfg.MatchEventsExchange, "topic", true); err != nil {
		return err
	}
	if err := r.EnsureQueue(r.cfg.ScoringQueue, true); err != nil {
		return err
	}
	return r.BindQueue(r.cfg.ScoringQueue, r.cfg.MatchEventsExchange, r.cfg.ScoreNeededKey)
}

// PublishScoreNeeded 发布一条评分触发事件
func (r *RabbitMQ) PublishScoreNeeded(ctx context.Context, msg *ScoreNeededMessage) error {
	return r.PublishJSON(ctx, r.cfg.MatchEventsExchange, r.cfg.ScoreNeededKey, msg, true)
}

// StartConsumer 启动一个消费者循环。
// handler返回true时ack，返回false时nack并重新入队。
// 返回的channel在消费循环退出时关闭。
func (r *RabbitMQ) StartConsumer(queueName string, prefetchCount int, handler func([]byte) bool) (<-chan struct{}, error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("创建消费者通道失败: %w", err)
	}

	if prefetchCount > 0 {
		if err := ch.Qos(prefetchCount, 0, false); err != nil {
			ch.Close()
			return nil, fmt.Errorf("设置QoS失败: %w", err)
		}
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("启动消费者失败: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer ch.Close()
		for d := range deliveries {
			if handler(d.Body) {
				if err := d.Ack(false); err != nil {
					log.Printf("确认消息失败: %v", err)
				}
			} else {
				if err := d.Nack(false, true); err != nil {
					log.Printf("拒绝消息失败: %v", err)
				}
			}
		}
	}()

	return done, nil
}
