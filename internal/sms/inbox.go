package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Message is one entry pulled from a device inbox.
type Message struct {
	Date    time.Time `json:"date"`
	Address string    `json:"address"`
	Body    string    `json:"body"`
}

// Inbox supplies messages delivered at or after since, in no particular order.
type Inbox interface {
	Messages(ctx context.Context, since time.Time) ([]Message, error)
}

// SliceInbox serves a fixed batch of messages.
type SliceInbox []Message

// Messages implements Inbox.
func (s SliceInbox) Messages(ctx context.Context, since time.Time) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return filterSince(s, since), nil
}

// FileInbox reads a JSON export of the device inbox: an array of
// {address, body, date} objects where date is epoch milliseconds or RFC 3339.
type FileInbox struct {
	Path string
}

// Messages implements Inbox.
func (f FileInbox) Messages(ctx context.Context, since time.Time) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox export: %w", err)
	}
	msgs, err := DecodeMessages(data)
	if err != nil {
		return nil, fmt.Errorf("inbox export %s: %w", f.Path, err)
	}
	return filterSince(msgs, since), nil
}

// DecodeMessages parses a JSON array of inbox messages.
func DecodeMessages(data []byte) ([]Message, error) {
	var raw []struct {
		Address string          `json:"address"`
		Body    string          `json:"body"`
		Date    json.RawMessage `json:"date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	msgs := make([]Message, 0, len(raw))
	for i, r := range raw {
		at, err := decodeDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		msgs = append(msgs, Message{Address: r.Address, Body: r.Body, Date: at})
	}
	return msgs, nil
}

func decodeDate(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("invalid date: %w", err)
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms), nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		return t, nil
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch date %s: %w", raw, err)
	}
	return time.UnixMilli(ms), nil
}

func filterSince(msgs []Message, since time.Time) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if since.IsZero() || !m.Date.Before(since) {
			out = append(out, m)
		}
	}
	return out
}
