// Command aish is the CI registry and message shell: it resolves a
// logical CI name to a transport endpoint, manages per-CI forwarding
// rules, and maintains per-terminal ephemeral mailboxes.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ckoons/tekton-core/pkg/aish"
	sharedhttp "github.com/ckoons/tekton-core/pkg/shared/http"
	"github.com/ckoons/tekton-core/pkg/transport"
)

var (
	sender     string
	logger     = logrus.New()
	shellState *aish.Shell
	registry   *aish.Registry
)

func dial(endpoint string) (aish.Sender, error) {
	client := sharedhttp.NewDefaultClient()
	return transport.NewRequestResponse(endpoint, client), nil
}

func main() {
	store := aish.NewFileForwardStore(forwardStorePath())
	registry = aish.New(logger, store)
	if err := registry.Restore(context.Background()); err != nil {
		logger.WithError(err).Warn("failed to restore forwarding table")
	}
	shellState = aish.NewShell(registry, dial, logger)

	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func forwardStorePath() string {
	if path := os.Getenv("AISH_FORWARD_STORE"); path != "" {
		return path
	}
	return os.ExpandEnv("$HOME/.tekton/aish/forwards.json")
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "aish [options] <ci|special-component> [subcommand|message]",
		Short: "Route a message to a CI, terminal, or team of CIs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return newSendCommand().RunE(cmd, args)
		},
	}
	root.PersistentFlags().StringVar(&sender, "sender", "operator", "identity to attribute outgoing messages to")

	root.AddCommand(newSendCommand())
	root.AddCommand(newPromptCommand())
	root.AddCommand(newForwardCommand())
	root.AddCommand(newUnforwardCommand())
	root.AddCommand(newTermaCommand())
	root.AddCommand(newTeamChatCommand())
	root.AddCommand(newHelpCommand())
	return root
}

func readMessageArg(args []string, index int) (string, error) {
	if index < len(args) {
		return args[index], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read message from stdin: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("stdin-empty: no message provided and stdin was empty")
	}
	return string(data), nil
}

func newSendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send <ci> [message]",
		Short: "Send a message to a ci, honoring its forward rule",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := readMessageArg(args, 1)
			if err != nil {
				return err
			}
			reply, err := shellState.SendMessage(cmd.Context(), args[0], message, sender)
			if err != nil {
				return err
			}
			if reply != "" {
				fmt.Println(reply)
			}
			return nil
		},
	}
}

func newPromptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <ci> [message]",
		Short: "Send a high-priority message to a ci",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := readMessageArg(args, 1)
			if err != nil {
				return err
			}
			reply, err := shellState.Prompt(cmd.Context(), args[0], message, sender)
			if err != nil {
				return err
			}
			if reply != "" {
				fmt.Println(reply)
			}
			return nil
		},
	}
}

func newForwardCommand() *cobra.Command {
	var jsonWrap bool
	cmd := &cobra.Command{
		Use:   "forward <ci> <terminal>",
		Short: "Forward a ci's messages to a terminal's mailbox",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return registry.Forward(cmd.Context(), args[0], args[1], jsonWrap)
		},
	}
	cmd.Flags().BoolVar(&jsonWrap, "json", false, "envelope-wrap the forwarded payload")
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the forwarding table",
		RunE: func(cmd *cobra.Command, args []string) error {
			for ci, rule := range registry.ListForwards() {
				fmt.Printf("%s -> %s (json=%v)\n", ci, rule.Terminal, rule.JSON)
			}
			return nil
		},
	})
	return cmd
}

func newUnforwardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unforward <ci>",
		Short: "Remove a ci's forwarding rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return registry.Unforward(cmd.Context(), args[0])
		},
	}
}

func newTermaCommand() *cobra.Command {
	terma := &cobra.Command{
		Use:   "terma",
		Short: "Terminal inter-session messaging",
	}
	terma.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List live terminal sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, session := range registry.ListTerminals() {
				fmt.Println(session.TerminalID, session.Name)
			}
			return nil
		},
	})
	terma.AddCommand(&cobra.Command{
		Use:   "broadcast [message]",
		Short: "Broadcast a message to every terminal's new mailbox",
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := readMessageArg(args, 0)
			if err != nil {
				return err
			}
			shellState.Broadcast(message, sender, false)
			return nil
		},
	})
	return terma
}

func newTeamChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "team-chat [message]",
		Short: "Broadcast to every greek-chorus ci in parallel",
		RunE: func(cmd *cobra.Command, args []string) error {
			message, err := readMessageArg(args, 0)
			if err != nil {
				return err
			}
			results := shellState.TeamChat(cmd.Context(), teamChatRoster(), message, sender)
			for _, r := range results {
				status := "ok"
				if r.TimedOut {
					status = "timeout"
				} else if r.Err != nil {
					status = "error: " + r.Err.Error()
				}
				fmt.Printf("%s: %s (%s)\n", r.CIName, r.Reply, status)
			}
			return nil
		},
	}
}

func teamChatRoster() []aish.CIEntry {
	// The registry itself doesn't expose a bulk CI listing (it's keyed by
	// name for point lookups); callers wire their own roster here from
	// whatever inventory source they configure.
	return nil
}

func newHelpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "help [component]",
		Short: "Print a path reference to training/user documentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := "aish"
			if len(args) > 0 {
				topic = args[0]
			}
			fmt.Printf("see docs/training/%s.md\n", topic)
			return nil
		},
	}
}
