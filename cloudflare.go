package dyndns

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/cloudflare/cloudflare-go"
)

// NewCloudflareRecordClient returns a RecordClient backed by the
// Cloudflare API, authenticated with an account email and API key.
// It is for callers that use Syncer directly; dyndns.New callers
// should prefer the UsingCloudflare option.
func NewCloudflareRecordClient(email, key string) (RecordClient, error) {
	return newCloudflareRecords(email, key)
}

func newCloudflareRecords(email, key string) (cf *cloudflareRecords, err error) {
	cf = new(cloudflareRecords)
	cf.api, err = cloudflare.New(key, email)
	if err != nil {
		return nil, fmt.Errorf("error creating cloudflare api client: %w", err)
	}
	cf.logger = discard
	return cf, nil
}

// cloudflareRecords implements dyndns.RecordClient.
//
// It should be constructed with newCloudflareRecords (via
// dyndns.UsingCloudflare).
type cloudflareRecords struct {
	api    *cloudflare.API
	logger *log.Logger
}

func (cf *cloudflareRecords) GetRecord(ctx context.Context, zoneID, recordID string) (Record, error) {
	if cf.api == nil {
		return Record{}, errors.New("cloudflareRecords must be constructed with dyndns.UsingCloudflare")
	}
	record, err := guard(cf.logger, "fetching DNS record", func() (cloudflare.DNSRecord, error) {
		return cf.api.GetDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), recordID)
	})
	if err != nil {
		return Record{}, err
	}
	return fromAPIRecord(record), nil
}

func (cf *cloudflareRecords) UpdateRecord(ctx context.Context, zoneID, recordID string, r Record) (Record, error) {
	if cf.api == nil {
		return Record{}, errors.New("cloudflareRecords must be constructed with dyndns.UsingCloudflare")
	}
	record, err := guard(cf.logger, "updating DNS record", func() (cloudflare.DNSRecord, error) {
		return cf.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.UpdateDNSRecordParams{
			ID:      recordID,
			Type:    r.Type,
			Name:    r.Name,
			Content: r.Content,
			Proxied: cloudflare.BoolPtr(r.Proxied),
		})
	})
	if err != nil {
		return Record{}, err
	}
	return fromAPIRecord(record), nil
}

func fromAPIRecord(r cloudflare.DNSRecord) Record {
	return Record{
		ID:      r.ID,
		ZoneID:  r.ZoneID,
		Name:    r.Name,
		Type:    r.Type,
		Content: r.Content,
		Proxied: r.Proxied != nil && *r.Proxied,
	}
}

// CallErrorKind classifies a failed provider call.
type CallErrorKind string

const (
	// TransportUnreachable means the provider could not be reached at
	// the network layer; no HTTP status was ever produced.
	TransportUnreachable CallErrorKind = "transport unreachable"
	// RateLimited means the provider answered 429; backing off is
	// required before trying again. No retry is performed here.
	RateLimited CallErrorKind = "rate limited"
	// ProviderRejected means the provider answered with any other
	// non-success status.
	ProviderRejected CallErrorKind = "provider rejected"
)

// CallError is a provider call failure classified by the remote-call
// fault boundary.
type CallError struct {
	Kind       CallErrorKind
	StatusCode int    // 0 when no HTTP status was produced
	Body       string // the provider's error response, if any
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("cloudflare call failed: %s (status %d): %s", e.Kind, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("cloudflare call failed: %s: %v", e.Kind, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// guard is the fault boundary wrapped around every provider call:
// on failure the error is classified into a CallError and reported
// through the logger before being returned, so callers only ever see
// the closed set of kinds.
func guard[T any](logger *log.Logger, op string, call func() (T, error)) (T, error) {
	result, err := call()
	if err == nil {
		return result, nil
	}

	cerr := classify(err)
	switch cerr.Kind {
	case TransportUnreachable:
		logger.Printf("%s: the provider could not be reached: %s\n", op, cerr.Err)
	case RateLimited:
		logger.Printf("%s: provider rate limit hit; back off before retrying\n", op)
	case ProviderRejected:
		logger.Printf("%s: provider rejected the call with status %d: %s\n", op, cerr.StatusCode, cerr.Body)
	}

	var zero T
	return zero, cerr
}

// classify maps a cloudflare-go error into exactly one CallErrorKind.
//
// cloudflare-go wraps each non-2xx response in an error type tied to
// the status range that produced it, so the status reported for
// ProviderRejected is recovered from the type (500 stands in for the
// 5xx range, 400 for bad-payload request errors). Anything not of
// those types never got an HTTP response and counts as a transport
// failure.
func classify(err error) *CallError {
	switch {
	case isProviderError[cloudflare.RatelimitError](err):
		return &CallError{Kind: RateLimited, StatusCode: http.StatusTooManyRequests, Body: err.Error(), Err: err}
	case isProviderError[cloudflare.ServiceError](err):
		return &CallError{Kind: ProviderRejected, StatusCode: http.StatusInternalServerError, Body: err.Error(), Err: err}
	case isProviderError[cloudflare.AuthenticationError](err):
		return &CallError{Kind: ProviderRejected, StatusCode: http.StatusUnauthorized, Body: err.Error(), Err: err}
	case isProviderError[cloudflare.AuthorizationError](err):
		return &CallError{Kind: ProviderRejected, StatusCode: http.StatusForbidden, Body: err.Error(), Err: err}
	case isProviderError[cloudflare.NotFoundError](err):
		return &CallError{Kind: ProviderRejected, StatusCode: http.StatusNotFound, Body: err.Error(), Err: err}
	case isProviderError[cloudflare.RequestError](err):
		return &CallError{Kind: ProviderRejected, StatusCode: http.StatusBadRequest, Body: err.Error(), Err: err}
	}
	return &CallError{Kind: TransportUnreachable, Err: err}
}

// isProviderError reports whether err is the provider error T in
// either of the shapes cloudflare-go produces: the request layer
// returns its error wrappers as pointers, while the New*Error
// constructors return values.
func isProviderError[T error](err error) bool {
	var value T
	if errors.As(err, &value) {
		return true
	}
	var pointer *T
	// The conversion to any sidesteps a vet false positive: vet cannot
	// prove *T implements error for a type parameter, but errors.As
	// resolves the concrete type at runtime.
	return errors.As(err, any(&pointer))
}
