package main

import (
	"testing"

	"github.com/fsoubelet/toychain/commands"
	"github.com/stretchr/testify/assert"
)

func TestRelaySignalStopWinsOverRestart(t *testing.T) {
	ctl := make(chan commands.Command, 1)
	relaySignal(ctl, commands.Command{Op: commands.RESTART})
	relaySignal(ctl, commands.Command{Op: commands.STOP})

	assert.Equal(t, commands.Operation(commands.STOP), (<-ctl).Op)
	assert.Empty(t, ctl)
}

func TestRelaySignalRestartKeepsStop(t *testing.T) {
	ctl := make(chan commands.Command, 1)
	relaySignal(ctl, commands.Command{Op: commands.STOP})
	relaySignal(ctl, commands.Command{Op: commands.RESTART})

	assert.Equal(t, commands.Operation(commands.STOP), (<-ctl).Op)
}

func TestRelaySignalNeverBlocks(t *testing.T) {
	ctl := make(chan commands.Command, 1)
	for i := 0; i < 3; i++ {
		relaySignal(ctl, commands.Command{Op: commands.RESTART})
	}
	assert.Len(t, ctl, 1)
}
