package domain

import (
	"context"
)

// ContainerClassifier determines whether a scanned code denotes a known
// container. A nil payload with nil error means "not a container"; any error
// is treated by callers as "not a container" as well.
type ContainerClassifier interface {
	ClassifyContainer(ctx context.Context, code string) (*ContainerPayload, error)
}

// TagResolver resolves a tag code to the display text that should be replayed
// as keyboard input. ErrNoResult (or any other error) means nothing is
// forwarded for that scan.
type TagResolver interface {
	LookupTag(ctx context.Context, code string) (string, error)
}

// ContainerLinker performs the remote pairing mutation. A nil error means the
// link was accepted; there are no partial states.
type ContainerLinker interface {
	LinkContainerToTag(ctx context.Context, container ContainerPayload, tag string) error
}

// KeystrokeEmitter replays text as keyboard input to the active foreground
// target. Inter-key delay and terminator handling are emitter configuration.
type KeystrokeEmitter interface {
	EmitKeystrokes(ctx context.Context, text string) error
}

// AssignmentHistory records completed link attempts for operator review
type AssignmentHistory interface {
	Record(ctx context.Context, record AssignmentRecord) error
	Recent(ctx context.Context, limit int) ([]AssignmentRecord, error)
}

// EventPublisher publishes pipeline events to the message bus
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
