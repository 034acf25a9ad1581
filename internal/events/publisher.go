// Package events announces committed page writes on an SNS topic so that
// downstream consumers (static rebuilds, CDN purges) can react.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	appaws "site-cms/internal/common/aws"
	"site-cms/internal/common/errors"
	"site-cms/internal/common/logger"
	"site-cms/internal/store"
)

const (
	EventPageCreated     = "page.created"
	EventPageUpdated     = "page.updated"
	EventPageDeleted     = "page.deleted"
	EventSectionsChanged = "page.sections_changed"
)

// Message is the JSON body published for every change.
type Message struct {
	Event      string    `json:"event"`
	PageID     string    `json:"page_id"`
	Slug       string    `json:"slug"`
	PrevSlug   string    `json:"prev_slug,omitempty"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher struct {
	client   appaws.SNSAPI
	topicARN string
	log      logger.Logger
	now      func() time.Time
}

func NewPublisher(client appaws.SNSAPI, topicARN string, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Publisher{client: client, topicARN: topicARN, log: log, now: time.Now}
}

func eventName(kind store.ChangeKind) string {
	switch kind {
	case store.PageCreated:
		return EventPageCreated
	case store.PageUpdated:
		return EventPageUpdated
	case store.PageDeleted:
		return EventPageDeleted
	default:
		return EventSectionsChanged
	}
}

// NewMessage converts a store change into its wire form. It returns false
// for changes that carry no page.
func NewMessage(change store.Change, at time.Time) (Message, bool) {
	if change.Page == nil {
		return Message{}, false
	}
	msg := Message{
		Event:      eventName(change.Kind),
		PageID:     change.Page.ID,
		Slug:       change.Page.Slug,
		Status:     string(change.Page.Status),
		OccurredAt: at.UTC(),
	}
	if change.PrevSlug != change.Page.Slug {
		msg.PrevSlug = change.PrevSlug
	}
	return msg, true
}

func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return errors.NewEventPublishFailedError(msg.Event, err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String(msg.Event)},
			"slug":  {DataType: aws.String("String"), StringValue: aws.String(msg.Slug)},
		},
	})
	if err != nil {
		return errors.NewEventPublishFailedError(msg.Event, err)
	}

	p.log.Debug("page event published", map[string]interface{}{
		"event":  msg.Event,
		"pageId": msg.PageID,
	})
	return nil
}

func (p *Publisher) Name() string { return "sns-events" }

func (p *Publisher) PageChanged(ctx context.Context, change store.Change) error {
	msg, ok := NewMessage(change, p.now())
	if !ok {
		return nil
	}
	return p.Publish(ctx, msg)
}
