package console

import (
	"fmt"

	"github.com/ericogr/muxdaq/pkg/output"
	"github.com/ericogr/muxdaq/pkg/sensor"
)

type ConsoleOutput struct{}

func NewConsole() output.Output { return &ConsoleOutput{} }

// Publish prints one line per active slot. Inactive slots are skipped so a
// quiet topology stays quiet on the terminal.
func (c *ConsoleOutput) Publish(reports []sensor.Report) error {
	for i, r := range reports {
		if !r.Active {
			continue
		}
		fmt.Printf("slot=%d type=%s value=%.3f\n", i, r.Type, r.Value)
	}
	return nil
}

func (c *ConsoleOutput) Close() error { return nil }
