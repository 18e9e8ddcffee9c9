package awstest

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
)

// SentMessage is a message captured by SQS.
type SentMessage struct {
	QueueURL   string
	Body       string
	Attributes map[string]string
}

// SQS records every SendMessage call.
type SQS struct {
	mu   sync.Mutex
	Sent []SentMessage
	Err  error
}

func (s *SQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	msg := SentMessage{QueueURL: *in.QueueUrl, Body: *in.MessageBody, Attributes: map[string]string{}}
	for k, v := range in.MessageAttributes {
		if v.StringValue != nil {
			msg.Attributes[k] = *v.StringValue
		}
	}
	s.Sent = append(s.Sent, msg)
	id := uuid.NewString()
	return &sqs.SendMessageOutput{MessageId: &id}, nil
}

// Messages returns a snapshot of the captured messages.
func (s *SQS) Messages() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentMessage(nil), s.Sent...)
}
