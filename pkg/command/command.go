// Package command defines the value flowing through the bulk pipeline.
package command

import "time"

// Command is one opaque text payload and the moment it was read.
type Command struct {
	Text      string
	Timestamp time.Time
}

// New stamps text with the current time.
func New(text string) Command {
	return Command{Text: text, Timestamp: time.Now()}
}

// Clock supplies timestamps for incoming commands.
type Clock func() time.Time

// Now returns the clock's time, falling back to time.Now for a nil clock.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}

	return c()
}

// Stamp builds a Command for text. A nil clock stamps with the current time.
func (c Clock) Stamp(text string) Command {
	if c == nil {
		return New(text)
	}

	return Command{Text: text, Timestamp: c()}
}

// FixedClock returns a clock that starts at start and advances by step on every call.
func FixedClock(start time.Time, step time.Duration) Clock {
	next := start
	return func() time.Time {
		current := next
		next = next.Add(step)
		return current
	}
}
