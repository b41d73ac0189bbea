// Package services implements the application logic of the connector: the
// suggestion orchestrator and the channel bridge, plus the small concurrent
// containers they share (echo set, conversation locks).
//
// This file centralizes service-level error values so they can be returned
// consistently and checked by callers with errors.Is. Translation into HTTP
// responses happens at the handler layer.
package services

import "errors"

var (
	// ErrNoAnchor indicates that no contact-authored anchor message could be
	// resolved for the conversation, so suggestions have nothing to attach
	// to. It is the only aborting error the orchestrator produces; every
	// per-candidate failure degrades to a skip instead.
	ErrNoAnchor = errors.New("no anchor message for conversation")

	// ErrEchoSuppressed reports that an inbound agent utterance matched a
	// text this bridge instance recently sent itself and was dropped.
	ErrEchoSuppressed = errors.New("own echo suppressed")
)
