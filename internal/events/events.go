package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects. The alerting side (Telegram etc.) lives in a separate
// service and consumes these.
const (
	SubjectVideoProcessed  = "sonar.video.processed"
	SubjectSignalVerified  = "sonar.signal.verified"
	SubjectReviewDecided   = "sonar.review.decided"
	SubjectReverifyStarted = "sonar.reverify.started"
)

// VideoProcessed is published after a video clears extract/merge/match.
type VideoProcessed struct {
	VideoID   string `json:"video_id"`
	Signals   int    `json:"signals"`
	Matched   int    `json:"matched"`
	Timestamp string `json:"timestamp"`
}

// ReviewDecided is published when a human decision lands.
type ReviewDecided struct {
	SignalKey string `json:"signal_key"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp"`
}

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Close() {
	c.conn.Close()
}
