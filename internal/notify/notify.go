// Package notify implements the two notification lanes the error taxonomy
// routes failures to: file owners (SMTP email) and operators (a webhook),
// per spec §7.
package notify

import "context"

// Notice is one failure worth telling someone about.
type Notice struct {
	SourceName string
	FileName   string
	Kind       string
	Message    string
}

// OwnerNotifier reaches the people who can fix the file itself.
type OwnerNotifier interface {
	NotifyOwner(ctx context.Context, recipients []string, n Notice) error
}

// OperatorNotifier reaches the people who can fix the pipeline.
type OperatorNotifier interface {
	NotifyOperator(ctx context.Context, n Notice) error
}
