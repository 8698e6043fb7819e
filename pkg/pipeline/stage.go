// Package pipeline implements the bulk command chain: block framing, size and
// block driven batching, and the console and file-log sinks.
package pipeline

import "bulk/pkg/command"

// Processor is one link in the command chain.
//
// StartBlock and FinishBlock carry block lifecycle downstream; only the
// batcher gives them meaning. Stages without a next link simply stop the chain.
type Processor interface {
	ProcessCommand(cmd command.Command)
	StartBlock()
	FinishBlock()
}

// NopBlockHooks gives a stage no-op block lifecycle hooks.
type NopBlockHooks struct{}

func (NopBlockHooks) StartBlock() {}

func (NopBlockHooks) FinishBlock() {}

// ProcessorFunc adapts a function into a terminal Processor.
type ProcessorFunc func(cmd command.Command)

func (f ProcessorFunc) ProcessCommand(cmd command.Command) {
	if f != nil {
		f(cmd)
	}
}

func (ProcessorFunc) StartBlock() {}

func (ProcessorFunc) FinishBlock() {}
