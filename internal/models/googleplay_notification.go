package models

// PubSubPushBody is the envelope Cloud Pub/Sub posts to a push endpoint
type PubSubPushBody struct {
	Message      PubSubMessage `json:"message"`
	Subscription string        `json:"subscription"`
}

// PubSubMessage carries the base64 encoded developer notification
type PubSubMessage struct {
	Data        string            `json:"data"`
	MessageID   string            `json:"messageId"`
	PublishTime string            `json:"publishTime"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}
