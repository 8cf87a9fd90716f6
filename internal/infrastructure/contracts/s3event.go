package contracts

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/singsphere/jukebox/internal/domain"
)

var ErrNoRecords = errors.New("event carries no records")

// S3Event is the bucket notification body sent by S3 and MinIO.
type S3Event struct {
	EventName string          `json:"EventName,omitempty"`
	Key       string          `json:"Key,omitempty"`
	Records   []S3EventRecord `json:"Records"`
}

type S3EventRecord struct {
	EventName string   `json:"eventName"`
	EventTime string   `json:"eventTime"`
	S3        S3Entity `json:"s3"`
}

type S3Entity struct {
	Bucket S3Bucket `json:"bucket"`
	Object S3Object `json:"object"`
}

type S3Bucket struct {
	Name string `json:"name"`
}

type S3Object struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
	ETag string `json:"eTag"`
}

// ParseS3Event decodes a notification body into one upload notification per
// record. Object keys arrive URL-encoded and are decoded here.
func ParseS3Event(body []byte) ([]domain.UploadNotification, error) {
	var event S3Event
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode s3 event: %w", err)
	}
	if len(event.Records) == 0 {
		return nil, ErrNoRecords
	}

	notifications := make([]domain.UploadNotification, 0, len(event.Records))
	for i, rec := range event.Records {
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("record %d: decode object key %q: %w", i, rec.S3.Object.Key, err)
		}
		if rec.S3.Bucket.Name == "" || key == "" {
			return nil, fmt.Errorf("record %d: bucket and object key are required", i)
		}
		notifications = append(notifications, domain.UploadNotification{
			Bucket: rec.S3.Bucket.Name,
			Key:    key,
		})
	}

	return notifications, nil
}
