// Package webhooks authenticates and ingests signed payment notifications.
//
// A delivery moves through a fixed sequence of stages:
// start -> signature_checked -> event_recorded -> transaction_derived -> committed.
// Any stage may end in rejected. Only the event_recorded stage and later leave
// rows behind; an event that fails after being recorded is marked FAILED so a
// later duplicate delivery is still refused.
package webhooks
