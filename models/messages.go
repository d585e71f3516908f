package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MessageKind distinguishes text from voice messages.
type MessageKind string

const (
	MessageKindText  MessageKind = "text"
	MessageKindVoice MessageKind = "voice"
)

// DeliveryState tracks whether the transport has acknowledged a message.
type DeliveryState string

const (
	DeliveryPending   DeliveryState = "pending"
	DeliveryConfirmed DeliveryState = "confirmed"
)

// TimestampLayout is the stored form of createdAt. Fixed width keeps string
// order equal to time order for sort keys. It parses as RFC3339Nano.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RawMessage is a message as stored and transported by the backend
type RawMessage struct {
	MatchID   string      `dynamodbav:"matchId" json:"matchId"`                       // ✅ Partition Key
	CreatedAt string      `dynamodbav:"createdAt" json:"createdAt"`                   // ✅ Sort Key, TimestampLayout
	MessageID string      `dynamodbav:"messageId" json:"messageId"`                   // Unique message id
	SenderID  string      `dynamodbav:"senderId" json:"senderId"`                     // Author
	Kind      MessageKind `dynamodbav:"kind,omitempty" json:"kind,omitempty"`         // text (default) or voice
	Content   string      `dynamodbav:"content,omitempty" json:"content,omitempty"`   // Text body
	Duration  float64     `dynamodbav:"duration,omitempty" json:"duration,omitempty"` // Voice length in seconds
	AudioKey  string      `dynamodbav:"audioKey,omitempty" json:"audioKey,omitempty"` // Voice clip object key
	IsUnread  bool        `dynamodbav:"isUnread" json:"isUnread"`
}

// UnmarshalDynamoDBAttributeValue accepts isUnread stored either as a BOOL or
// as the legacy "true"/"false" string.
func (m *RawMessage) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	item, ok := av.(*types.AttributeValueMemberM)
	if !ok {
		return fmt.Errorf("message: expected a map attribute, got %T", av)
	}
	values := item.Value
	legacy, isString := values["isUnread"].(*types.AttributeValueMemberS)
	if isString {
		values = make(map[string]types.AttributeValue, len(item.Value))
		for k, v := range item.Value {
			if k != "isUnread" {
				values[k] = v
			}
		}
	}

	type plain RawMessage
	var p plain
	if err := attributevalue.UnmarshalMap(values, &p); err != nil {
		return err
	}
	*m = RawMessage(p)
	if isString {
		unread, err := strconv.ParseBool(legacy.Value)
		if err != nil {
			return fmt.Errorf("message %s: isUnread %q: %w", m.MessageID, legacy.Value, err)
		}
		m.IsUnread = unread
	}
	return nil
}

// OutgoingMessage is the payload handed to MessageTransport.SendMessage.
type OutgoingMessage struct {
	MatchID  string      `json:"matchId"`
	AuthorID string      `json:"senderId"`
	Kind     MessageKind `json:"kind"`
	Content  string      `json:"content,omitempty"`
	Duration float64     `json:"duration,omitempty"`
	AudioKey string      `json:"audioKey,omitempty"`
}

// Message is one entry of a conversation timeline.
type Message struct {
	ID        string        `json:"id"`
	AuthorID  string        `json:"authorId"`
	Kind      MessageKind   `json:"kind"`
	Content   string        `json:"content,omitempty"`
	Duration  float64       `json:"duration,omitempty"`
	AudioKey  string        `json:"audioKey,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	State     DeliveryState `json:"state"`
	Read      bool          `json:"read"`
	Failed    bool          `json:"failed,omitempty"`
}
