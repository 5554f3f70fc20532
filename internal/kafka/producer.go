package kafka

import (
	"context"
	"encoding/json"

	"course-manager/internal/models"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

type enrollmentEvent struct {
	Type       string            `json:"type"`
	Enrollment models.Enrollment `json:"enrollment"`
}

// PublishEnrollmentCompleted streams a completed enrollment to Kafka.
func (p *Producer) PublishEnrollmentCompleted(enrollment models.Enrollment) error {
	return p.publish("enrollment_completed", enrollment)
}

// PublishCheckoutStarted streams a paid submission's checkout handoff.
func (p *Producer) PublishCheckoutStarted(enrollment models.Enrollment) error {
	return p.publish("checkout_started", enrollment)
}

func (p *Producer) publish(eventType string, enrollment models.Enrollment) error {
	msgBytes, err := json.Marshal(enrollmentEvent{Type: eventType, Enrollment: enrollment})
	if err != nil {
		return err
	}
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(enrollment.CourseID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
