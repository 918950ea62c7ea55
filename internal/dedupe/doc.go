// Package dedupe remembers recently handled chat event IDs so a redelivered
// event is not applied twice. Withdrawals are destructive, so the bridge
// must never act on the same event ID more than once inside the window.
package dedupe
