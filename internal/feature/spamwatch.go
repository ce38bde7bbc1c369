package feature

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/apirelay/featbot/internal/outbound"
)

// SpamwatchClient queries the SpamWatch ban-list service.
type SpamwatchClient struct {
	client *outbound.Client
}

// NewSpamwatchClient creates a ban-list lookup client.
func NewSpamwatchClient(client *outbound.Client) *SpamwatchClient {
	return &SpamwatchClient{client: client}
}

type banRecord struct {
	ID      int64  `json:"id"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
	Date    int64  `json:"date"`
	Admin   int64  `json:"admin"` // never exposed
}

// Lookup fetches the ban record for the given identifier. The record's fields
// are returned as strings, with the Unix-seconds date normalized to RFC 3339
// and the acting admin id withheld.
func (c *SpamwatchClient) Lookup(ctx context.Context, id string) (map[string]string, error) {
	var ban banRecord
	if err := c.client.GetJSON(ctx, "/banlist/"+id, &ban); err != nil {
		return nil, fmt.Errorf("banlist lookup failed: %w", err)
	}

	fields := map[string]string{
		"id":     strconv.FormatInt(ban.ID, 10),
		"reason": ban.Reason,
		"date":   time.Unix(ban.Date, 0).UTC().Format(time.RFC3339),
	}
	if ban.Message != "" {
		fields["message"] = ban.Message
	}
	return fields, nil
}
