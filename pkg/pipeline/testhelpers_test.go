package pipeline

import (
	"time"

	"bulk/pkg/command"
)

type recordingProcessor struct {
	commands []command.Command
	events   []string
}

func (r *recordingProcessor) ProcessCommand(cmd command.Command) {
	r.commands = append(r.commands, cmd)
	r.events = append(r.events, "cmd:"+cmd.Text)
}

func (r *recordingProcessor) StartBlock() {
	r.events = append(r.events, "start")
}

func (r *recordingProcessor) FinishBlock() {
	r.events = append(r.events, "finish")
}

func (r *recordingProcessor) texts() []string {
	out := make([]string, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd.Text)
	}
	return out
}

var testEpoch = time.Unix(1700000000, 0)

func commandsAt(texts ...string) []command.Command {
	clock := command.FixedClock(testEpoch, time.Second)
	out := make([]command.Command, 0, len(texts))
	for _, text := range texts {
		out = append(out, command.Command{Text: text, Timestamp: clock.Now()})
	}
	return out
}
