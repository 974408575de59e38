// internal/sink/mongo/client.go
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client inserts documents into one collection.
// The driver pools connections; Client is safe for concurrent use.
type Client struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type Config struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration // connect and server selection
}

// New configures a client. The driver connects lazily; use Ping to check
// the server is reachable.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URI == "" {
		return nil, errors.New("sink mongo: uri required")
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, errors.New("sink mongo: database and collection required")
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetConnectTimeout(cfg.Timeout)
		opts.SetServerSelectionTimeout(cfg.Timeout)
	}

	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sink mongo: connect: %w", err)
	}

	return &Client{
		client: c,
		coll:   c.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("sink mongo: ping: %w", err)
	}
	return nil
}

// InsertOne writes one document.
func (c *Client) InsertOne(ctx context.Context, doc any) error {
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("sink mongo: insert %s: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
