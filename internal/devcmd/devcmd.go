package devcmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Commander is the set of engine mutations reachable from the debug console.
type Commander interface {
	AddMoney(ctx context.Context, amount int64) error
	AddXP(ctx context.Context, amount int64) error
	Reset(ctx context.Context) error
	RandomizeMarket(ctx context.Context) error
	SetBalance(ctx context.Context, balance int64) error
}

var ErrUnknownCommand = errors.New("unknown command")

// UsageError carries the usage line for a malformed invocation.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string { return "usage: " + e.Usage }

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, c Commander, args []string) (string, error)
}

var commands = map[string]command{
	"add_money": {
		usage: "add_money <int>",
		help:  "credit the balance",
		run: intCommand("add_money <int>", func(ctx context.Context, c Commander, n int64) (string, error) {
			return fmt.Sprintf("added %d to balance", n), c.AddMoney(ctx, n)
		}),
	},
	"add_xp": {
		usage: "add_xp <int>",
		help:  "grant experience",
		run: intCommand("add_xp <int>", func(ctx context.Context, c Commander, n int64) (string, error) {
			return fmt.Sprintf("added %d xp", n), c.AddXP(ctx, n)
		}),
	},
	"set_balance": {
		usage: "set_balance <int>",
		help:  "overwrite the balance",
		run: intCommand("set_balance <int>", func(ctx context.Context, c Commander, n int64) (string, error) {
			return fmt.Sprintf("balance set to %d", n), c.SetBalance(ctx, n)
		}),
	},
	"reset_game": {
		usage: "reset_game",
		help:  "discard the save and start over",
		run: func(ctx context.Context, c Commander, _ []string) (string, error) {
			return "game reset", c.Reset(ctx)
		},
	},
	"randomize_market": {
		usage: "randomize_market",
		help:  "redraw climate and market",
		run: func(ctx context.Context, c Commander, _ []string) (string, error) {
			return "market randomized", c.RandomizeMarket(ctx)
		},
	},
}

func intCommand(usage string, fn func(context.Context, Commander, int64) (string, error)) func(context.Context, Commander, []string) (string, error) {
	return func(ctx context.Context, c Commander, args []string) (string, error) {
		if len(args) != 1 {
			return "", &UsageError{Usage: usage}
		}
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return "", &UsageError{Usage: usage}
		}
		return fn(ctx, c, n)
	}
}

// Help lists every command, one per line.
func Help() string {
	names := make([]string, 0, len(commands)+1)
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(&b, "%-20s %s\n", cmd.usage, cmd.help)
	}
	fmt.Fprintf(&b, "%-20s %s\n", "help", "show this list")
	return b.String()
}

// Execute parses one console line and runs it against c. The returned message
// is only meaningful when err is nil.
func Execute(ctx context.Context, c Commander, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Help(), nil
	}
	name := strings.ToLower(fields[0])
	if name == "help" {
		return Help(), nil
	}
	cmd, ok := commands[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}
	msg, err := cmd.run(ctx, c, fields[1:])
	if err != nil {
		return "", err
	}
	return msg, nil
}
