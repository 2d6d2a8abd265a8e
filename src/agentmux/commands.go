package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agentmux/agentmux/src/agentmux/entity"
	appserver "github.com/agentmux/agentmux/src/agentmux/gateway/app-server"
	"github.com/agentmux/agentmux/src/agentmux/internal/core"
	"github.com/agentmux/agentmux/src/agentmux/internal/daemonclient"
	"github.com/agentmux/agentmux/src/agentmux/internal/fs"
	"github.com/agentmux/agentmux/src/agentmux/internal/serverinfofile"
	"github.com/spf13/cobra"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// clientFlags locate a running daemon. Empty values fall back to the loaded configuration.
type clientFlags struct {
	address string
	token   string
}

func newRootCommand() *cobra.Command {
	var configDir string

	rootCmd := &cobra.Command{
		Use:           "agentmuxd",
		Short:         "Multiplex agent app-server sessions behind a local daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configDir != "" {
				return os.Setenv(core.EnvConfigDir, configDir)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory holding meta.yaml and the files it lists")

	var flags clientFlags
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newProbeCommand())
	for _, cmd := range []*cobra.Command{newCallCommand(&flags), newWatchCommand(&flags)} {
		cmd.Flags().StringVar(&flags.address, "address", "", "Daemon address (default daemon.address)")
		cmd.Flags().StringVar(&flags.token, "token", "", "Daemon token (default daemon.token)")
		rootCmd.AddCommand(cmd)
	}
	return rootCmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(opts()).Run()
			return nil
		},
	}
}

func newProbeCommand() *cobra.Command {
	var bin string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that the agent CLI is installed and print its version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := core.NewConfig()
			if err != nil {
				return err
			}
			gw, err := appserver.New(appserver.Params{Config: cfg, Logger: zap.NewNop().Sugar()})
			if err != nil {
				return err
			}

			var agentBin string
			if err := cfg.Get("agent.bin").Populate(&agentBin); err != nil {
				return err
			}
			resolved := entity.WorkspaceEntry{AgentBin: bin}.ResolveBin(agentBin)
			version, err := gw.Probe(cmd.Context(), resolved)
			if err != nil {
				return err
			}
			if version == "" {
				version = "unknown version"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resolved, version)
			return nil
		},
	}
	cmd.Flags().StringVar(&bin, "bin", "", "Agent binary (default agent.bin, then codex)")
	return cmd
}

func newCallCommand(flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "call <method> [params-json]",
		Short: "Send one request to a running daemon and print its result",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params any
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("params must be a JSON value: %s", args[1])
				}
				params = json.RawMessage(args[1])
			}

			client, err := flags.dial(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Call(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
}

func newWatchCommand(flags *clientFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print daemon events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := flags.dial(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			for {
				select {
				case <-ctx.Done():
					return nil
				case e, ok := <-client.Events():
					if !ok {
						return nil
					}
					line, err := json.Marshal(map[string]any{"method": e.Method, "params": e.Params})
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), string(line))
				}
			}
		},
	}
}

// dial resolves the daemon address from the flag, then the running daemon's info file,
// then daemon.address. The token comes from the flag or daemon.token.
func (f *clientFlags) dial(cmd *cobra.Command) (daemonclient.Client, error) {
	address, token := f.address, f.token
	if address == "" || token == "" {
		cfg, err := core.NewConfig()
		if err != nil {
			return nil, err
		}
		if address == "" {
			address, err = discoverAddress(cfg)
			if err != nil {
				return nil, err
			}
		}
		if token == "" {
			token, err = configString(cfg, "daemon.token")
			if err != nil {
				return nil, err
			}
		}
	}
	return daemonclient.Dial(cmd.Context(), daemonclient.Options{Address: address, Token: token})
}

func discoverAddress(cfg config.Provider) (string, error) {
	info, err := serverinfofile.Discover(fs.New(), cfg)
	if err == nil && info.Address() != "" {
		return info.Address(), nil
	}
	return configString(cfg, "daemon.address")
}

func configString(cfg config.Provider, key string) (string, error) {
	var s string
	if err := cfg.Get(key).Populate(&s); err != nil {
		return "", fmt.Errorf("getting config field %q: %w", key, err)
	}
	return s, nil
}

func printJSON(cmd *cobra.Command, raw json.RawMessage) error {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(cmd.OutOrStdout())
	return err
}
