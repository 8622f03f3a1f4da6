package dyndns

import (
	"context"
	"fmt"
	"net/netip"
)

// FromString constructs an Observer that reports the fixed address
// addr, for callers that already know the IP and want to skip the
// router console entirely.
//
// Unlike RouterObserver, which returns console text verbatim, the
// string is validated here since there is no later step that could
// catch a typo.
func FromString(addr string) (Observer, error) {
	if _, err := netip.ParseAddr(addr); err != nil {
		return nil, fmt.Errorf("unable to parse IP: %w", err)
	}
	return stringObserver(addr), nil
}

type stringObserver string

func (s stringObserver) ObserveIP(context.Context) (string, error) {
	return string(s), nil
}
