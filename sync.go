package dyndns

import (
	"context"
	"log"
)

// Record is the provider-side state of one DNS record.
type Record struct {
	ID      string
	ZoneID  string
	Name    string
	Type    string
	Content string
	Proxied bool
}

// SyncStatus is the result class of one synchronization pass.
type SyncStatus int

const (
	// NoChange means the record already held the observed IP and no
	// write was issued.
	NoChange SyncStatus = iota
	// Updated means the record was rewritten with the observed IP.
	Updated
	// SyncFailed means a provider call failed; Outcome.Err carries the
	// classified cause.
	SyncFailed
)

func (s SyncStatus) String() string {
	switch s {
	case NoChange:
		return "no change needed"
	case Updated:
		return "updated"
	case SyncFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome reports what one synchronization pass did.
// IP is set to the observed address for NoChange and Updated.
type Outcome struct {
	Status SyncStatus
	IP     string
	Err    error
}

// Syncer reconciles one DNS record against an observed IP address.
// It holds no state between passes; the record always lives at the
// provider.
type Syncer struct {
	Records    RecordClient
	ZoneID     string
	RecordID   string
	RecordName string
	Logger     *log.Logger // nil discards
}

// Sync fetches the record and rewrites it only if its content differs
// from observedIP. The write always sets type "A", proxied on, and the
// configured record name.
//
// Provider failures are captured in the Outcome rather than returned;
// callers decide whether a failed pass matters.
func (s *Syncer) Sync(ctx context.Context, observedIP string) Outcome {
	record, err := s.Records.GetRecord(ctx, s.ZoneID, s.RecordID)
	if err != nil {
		return Outcome{Status: SyncFailed, Err: err}
	}
	if record.Content == observedIP {
		s.log().Printf("record %s is already set to %s\n", s.RecordName, observedIP)
		return Outcome{Status: NoChange, IP: observedIP}
	}

	s.log().Printf("record %s holds %s; updating to %s\n", s.RecordName, record.Content, observedIP)
	updated, err := s.Records.UpdateRecord(ctx, s.ZoneID, s.RecordID, Record{
		Type:    "A",
		Name:    s.RecordName,
		Content: observedIP,
		Proxied: true,
	})
	if err != nil {
		return Outcome{Status: SyncFailed, Err: err}
	}
	s.log().Printf("successfully updated record: %+v\n", updated)
	return Outcome{Status: Updated, IP: observedIP}
}

func (s *Syncer) log() *log.Logger {
	if s.Logger == nil {
		return discard
	}
	return s.Logger
}
