package dyndns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cloudflare/cloudflare-go"
)

var discard = log.New(io.Discard, "", log.LstdFlags)

// Observer reports the public IP currently assigned by the ISP.
type Observer interface {
	ObserveIP(context.Context) (string, error)
}

// RecordClient reads and writes a single DNS record at a provider.
type RecordClient interface {
	GetRecord(ctx context.Context, zoneID, recordID string) (Record, error)
	UpdateRecord(ctx context.Context, zoneID, recordID string, r Record) (Record, error)
}

// New returns a Client that manages one A record identified by
// zoneID and recordID, named recordName.
func New(zoneID, recordID, recordName string, options ...clientOption) (*Client, error) {
	if zoneID == "" || recordID == "" {
		return nil, fmt.Errorf("dyndns.New: zone and record IDs cannot be empty")
	}
	if recordName == "" {
		return nil, fmt.Errorf("dyndns.New: record name cannot be empty")
	}
	c := &Client{
		zoneID:     zoneID,
		recordID:   recordID,
		recordName: recordName,
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("dyndns.New: option %d returned an error: %s", i, err)
		}
	}

	if c.observer == nil {
		return nil, errors.New("dyndns.New: no IP observer was registered and there is no default option - use dyndns.UsingRouter or similar")
	}
	if c.records == nil {
		return nil, errors.New("dyndns.New: no DNS record client was registered and there is no default option - use dyndns.UsingCloudflare or similar")
	}

	// this lets us propagate the logger to dependencies that use one if WithLogger was called before all of the dependencies were registered
	withLogger(c.logger)(c)
	return c, nil
}

type clientOption func(*Client) error

// UsingCloudflare registers a Cloudflare record client authenticated
// with the given account email and API key.
func UsingCloudflare(email, key string) clientOption {
	return func(c *Client) (err error) {
		if c.records, err = newCloudflareRecords(email, key); err != nil {
			return fmt.Errorf("dyndns.UsingCloudflare: error creating cloudflare record client: %w", err)
		}
		return nil
	}
}

// UsingRecordClient registers a custom DNS record client.
func UsingRecordClient(records RecordClient) clientOption {
	return func(c *Client) error {
		if records == nil {
			return errors.New("dyndns.UsingRecordClient: record client cannot be nil")
		}
		c.records = records
		return nil
	}
}

// UsingRouter registers a RouterObserver for the console at url,
// authenticating with password and bounding every UI wait by timeout.
func UsingRouter(url, password string, timeout time.Duration) clientOption {
	return func(c *Client) error {
		c.observer = NewRouterObserver(url, password, timeout)
		return nil
	}
}

// UsingObserver registers a custom IP observer,
// for example a RouterObserver with non-default settings.
func UsingObserver(observer Observer) clientOption {
	return func(c *Client) error {
		if observer == nil {
			return errors.New("dyndns.UsingObserver: observer cannot be nil")
		}
		c.observer = observer
		return nil
	}
}

func withLogger(logger *log.Logger) clientOption {
	return func(c *Client) error {
		if logger == nil {
			logger = discard
		}
		type setLogger interface {
			SetLogger(*log.Logger)
		}

		switch r := c.records.(type) {
		case *cloudflareRecords:
			r.logger = logger
		case setLogger:
			r.SetLogger(logger)
		}

		switch o := c.observer.(type) {
		case *RouterObserver:
			o.logger = logger
		case setLogger:
			o.SetLogger(logger)
		}

		return nil
	}
}

// WithLogger sets the logger used by the client and its dependencies.
// The default is to discard log messages.
func WithLogger(logger *log.Logger) clientOption {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// UsingHTTPClient sets the http.Client used for provider API calls.
func UsingHTTPClient(httpclient *http.Client) clientOption {
	return func(c *Client) error {
		if httpclient == nil {
			httpclient = http.DefaultClient
		}
		type setHTTPClient interface {
			SetHTTPClient(*http.Client)
		}
		switch r := c.records.(type) {
		case *cloudflareRecords:
			cloudflare.HTTPClient(httpclient)(r.api)
		case setHTTPClient:
			r.SetHTTPClient(httpclient)
		}
		return nil
	}
}

// Client runs observe-and-synchronize passes against one DNS record.
type Client struct {
	observer Observer
	records  RecordClient
	logger   *log.Logger

	zoneID     string
	recordID   string
	recordName string
}

// Run performs one pass: observe the ISP IP, then synchronize the
// record against it.
//
// The returned error is non-nil only when observation failed;
// the browser session has already been released by then.
// Provider failures during synchronization never surface as an error -
// they are reported in the Outcome instead.
func (c *Client) Run(ctx context.Context) (Outcome, error) {
	ip, err := c.observer.ObserveIP(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("error observing ISP IP: %w", err)
	}
	c.log().Printf("observed ISP IP: %s\n", ip)

	s := &Syncer{
		Records:    c.records,
		ZoneID:     c.zoneID,
		RecordID:   c.recordID,
		RecordName: c.recordName,
		Logger:     c.logger,
	}
	return s.Sync(ctx, ip), nil
}

func (c *Client) log() *log.Logger {
	if c.logger == nil {
		return discard
	}
	return c.logger
}
