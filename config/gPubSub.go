package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

// AuditEvent is the fan-out copy of an audit log row. Consumers (reporting,
// alerting) subscribe to the audit topic; the primary record stays in MySQL.
type AuditEvent struct {
	BusinessId    string    `json:"business_id"`
	BranchId      int       `json:"branch_id"`
	Module        string    `json:"module"`
	Action        string    `json:"action"`
	ReferenceId   int       `json:"reference_id"`
	ReferenceType string    `json:"reference_type"`
	Details       string    `json:"details"`
	UserId        int       `json:"user_id"`
	CorrelationId string    `json:"correlation_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

var (
	pubsubClient   *pubsub.Client
	pubsubClientMu sync.Mutex
)

func init() {
	// Load env from .env
	godotenv.Load()
}

func getPubSubProjectID() string {
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		return v
	}
	// Cloud Run/Cloud Functions often set this.
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		return v
	}
	if v := os.Getenv("GCP_PROJECT"); v != "" {
		return v
	}
	return ""
}

func getPubSubClient(ctx context.Context) (*pubsub.Client, error) {
	pubsubClientMu.Lock()
	if pubsubClient != nil {
		c := pubsubClient
		pubsubClientMu.Unlock()
		return c, nil
	}
	pubsubClientMu.Unlock()

	projectID := getPubSubProjectID()
	if projectID == "" {
		return nil, errors.New("PUBSUB_PROJECT_ID/GOOGLE_CLOUD_PROJECT not set")
	}

	credJSON := os.Getenv("PUBSUB_CREDENTIALS_JSON")

	var (
		c   *pubsub.Client
		err error
	)
	if credJSON != "" {
		c, err = pubsub.NewClient(ctx, projectID, option.WithCredentialsJSON([]byte(credJSON)))
	} else {
		// Uses Application Default Credentials (Cloud Run service account or GOOGLE_APPLICATION_CREDENTIALS).
		c, err = pubsub.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, err
	}

	pubsubClientMu.Lock()
	if pubsubClient == nil {
		pubsubClient = c
	} else {
		// Another goroutine won the race; close ours.
		_ = c.Close()
	}
	c2 := pubsubClient
	pubsubClientMu.Unlock()

	log.Printf("pubsub client ready (project_id=%s)", projectID)
	return c2, nil
}

// PublishAuditEvent publishes an audit event to the audit topic.
// Callers treat this as best-effort: any error is logged and swallowed at the
// call site so audit fan-out can never abort a business transaction.
func PublishAuditEvent(ctx context.Context, event AuditEvent) (string, error) {
	topicName := os.Getenv("AUDIT_PUBSUB_TOPIC")
	if topicName == "" {
		return "", errors.New("AUDIT_PUBSUB_TOPIC is not set")
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := getPubSubClient(publishCtx)
	if err != nil {
		return "", err
	}

	msgJSON, err := json.Marshal(event)
	if err != nil {
		return "", err
	}

	t := client.Topic(topicName)
	result := t.Publish(publishCtx, &pubsub.Message{Data: msgJSON})
	return result.Get(publishCtx)
}
