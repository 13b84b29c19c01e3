package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"parley/internal/logging"
	"parley/internal/types"
)

// The feed endpoints push full snapshots: every event is the complete
// current collection, so a newer snapshot always supersedes an older
// one and the consumer never has to merge deltas.

func (c *Client) SubscribeConversations(ctx context.Context) (<-chan []*types.Conversation, func(), error) {
	url := fmt.Sprintf("%s/v1/conversations?follow=1", c.baseURL)
	return openSnapshotStream[[]*types.Conversation](c, ctx, url, "conversations")
}

func (c *Client) SubscribeMessages(ctx context.Context, conversationID string) (<-chan []*types.Message, func(), error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, nil, fmt.Errorf("conversation id is required")
	}
	url := fmt.Sprintf("%s/v1/conversations/%s/messages?follow=1", c.baseURL, conversationID)
	return openSnapshotStream[[]*types.Message](c, ctx, url, "messages")
}

func openSnapshotStream[T any](c *Client, ctx context.Context, url, name string) (<-chan T, func(), error) {
	if err := c.ensureToken(); err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "text/event-stream")

	// The shared client carries a request timeout, which would sever a
	// long-lived feed; streams get their own client.
	httpClient := &http.Client{}
	resp, err := httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		cancel()
		return nil, nil, decodeAPIError(resp)
	}

	log := streamDebugLogger()
	ch := make(chan T, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		count := 0
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		var dataLines []string

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				if len(dataLines) == 0 {
					continue
				}
				payload := strings.Join(dataLines, "\n")
				dataLines = dataLines[:0]
				var snapshot T
				if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
					continue
				}
				deliverLatest(ch, snapshot)
				count++
				if count == 1 && log != nil {
					log.Debug("stream_first", logging.F("feed", name), logging.F("url", url))
				}
				continue
			}
			if strings.HasPrefix(line, "data:") {
				dataLines = append(dataLines, strings.TrimSpace(line[len("data:"):]))
			}
		}
		if log != nil {
			log.Debug("stream_close",
				logging.F("feed", name),
				logging.F("count", count),
				logging.F("scan_err", scanner.Err()),
			)
		}
	}()

	return ch, cancel, nil
}

// deliverLatest sends without blocking the read loop. When the consumer
// lags, the oldest buffered snapshot is discarded; it is stale by
// definition.
func deliverLatest[T any](ch chan T, snapshot T) {
	select {
	case ch <- snapshot:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
	}
}

var (
	streamLogger     logging.Logger
	streamLoggerOnce sync.Once
)

func streamDebugLogger() logging.Logger {
	if strings.TrimSpace(os.Getenv("PARLEY_STREAM_DEBUG")) != "1" {
		return nil
	}
	streamLoggerOnce.Do(func() {
		path := filepath.Join(os.TempDir(), "parley-stream.log")
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			path = filepath.Join(home, ".parley", "stream.log")
		}
		_ = os.MkdirAll(filepath.Dir(path), 0o700)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			streamLogger = logging.New(os.Stderr, logging.Debug)
			return
		}
		streamLogger = logging.New(file, logging.Debug)
	})
	return streamLogger
}
