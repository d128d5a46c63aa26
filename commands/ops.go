package commands

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

type Operation int

const (
	DEFAULT = iota
	// Mine exactly one block and return.
	MINE
	// Start mining, infinite loop until explicit cancel.
	START
	// Restart mining when the chain we mine on gets replaced.
	RESTART
	// Stop mining completely.
	STOP
	// Run the consensus resolver against every registered peer.
	RESOLVE
	// Register a peer by its url, e.g. http://127.0.0.1:5001.
	ADD_PEER
	// List all peers.
	LIST_PEER
	// Queue a transaction: tx <sender> <recipient> <amount>.
	TRANSACT
	// Print the last blocks of the chain as a table.
	CHAIN
	// Render the last blocks of the chain as a graph.
	SHOW
)

// A command contains a operation and many arguments.
type Command struct {
	Op   Operation
	Args []string
}

func (c Command) IsValid() bool {
	switch c.Op {
	case MINE, START, RESTART, STOP, RESOLVE, LIST_PEER:
		return len(c.Args) == 0
	case ADD_PEER:
		return len(c.Args) == 1 && c.Args[0] != ""
	case TRANSACT:
		if len(c.Args) != 3 {
			return false
		}
		// ParseFloat takes "Inf" and "NaN", which no block can carry.
		v, err := strconv.ParseFloat(c.Args[2], 64)
		return err == nil && v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
	case CHAIN, SHOW:
		if len(c.Args) != 1 {
			return false
		}
		// depth must be a number.
		d, err := strconv.Atoi(c.Args[0])
		return err == nil && d >= 0
	default:
		return false
	}
}

// From string, create a command. Extra spaces between words are ignored.
func CreateCommand(s string) (Command, error) {
	ss := strings.Fields(s)
	if len(ss) == 0 {
		return Command{}, errors.New("command is empty")
	}
	cmd := Command{}
	switch ss[0] {
	case "mine":
		cmd.Op = MINE
	case "start":
		cmd.Op = START
	case "restart":
		cmd.Op = RESTART
	case "stop":
		cmd.Op = STOP
	case "resolve":
		cmd.Op = RESOLVE
	case "add_peer":
		cmd.Op = ADD_PEER
	case "list_peer":
		cmd.Op = LIST_PEER
	case "tx":
		cmd.Op = TRANSACT
	case "chain":
		cmd.Op = CHAIN
	case "show":
		cmd.Op = SHOW
	}
	cmd.Args = ss[1:]
	if !cmd.IsValid() {
		return Command{}, errors.New("invalid command")
	}
	return cmd, nil
}

// Create a brand new command with default operation.
func NewDefaultCommand() Command {
	return Command{
		Op: DEFAULT,
	}
}

func (c Command) IsDefault() bool {
	return c.Op == DEFAULT
}
