// Package mailer wraps the outbound mail transport and renders the
// service's email bodies. The Mailer contract is deliberately no-throw:
// transport errors are captured and logged inside Send, which only reports
// success or failure. That is what lets the fan-out loop treat every
// recipient uniformly without per-iteration error handling.
package mailer

import "context"

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	ReplyTo string
}

// Mailer attempts delivery of one message exactly once. Implementations
// must never return an error or panic: any transport failure is logged and
// reported as false.
type Mailer interface {
	Send(ctx context.Context, msg *Message) bool
}
