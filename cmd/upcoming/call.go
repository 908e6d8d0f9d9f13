package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sternrassler/upcoming-client/pkg/client"
	"github.com/Sternrassler/upcoming-client/pkg/config"
	"github.com/Sternrassler/upcoming-client/pkg/logging"
	"github.com/spf13/cobra"
)

func newCallCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "call <namespace> <method> [key=value...]",
		Short: "Call an API method and print the result as JSON",
		Example: `  upcoming call event search search_text=earthday
  upcoming call venue getInfo venue_id=42`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[2:])
			if err != nil {
				return err
			}

			upcoming, err := newClient(opts)
			if err != nil {
				return err
			}
			defer upcoming.Close()

			result, err := upcoming.Namespace(args[0]).Call(cmd.Context(), args[1], params)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

func newURLCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "url <namespace> <method> [key=value...]",
		Short: "Print the request URL of an API call without sending it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(args[2:])
			if err != nil {
				return err
			}

			upcoming, err := newClient(opts)
			if err != nil {
				return err
			}
			defer upcoming.Close()

			fmt.Fprintln(cmd.OutOrStdout(), upcoming.BuildURL(args[0], args[1], params))
			return nil
		},
	}
}

func newNamespacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "namespaces",
		Short: "List the API namespaces",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, ns := range client.Namespaces {
				fmt.Fprintln(cmd.OutOrStdout(), ns)
			}
		},
	}
}

// newClient loads the configuration and builds a client with logging set up.
func newClient(opts *options) (*client.Client, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	logCfg := cfg.LogConfig()
	if opts.verbose {
		logCfg.Level = logging.LevelDebug
	}
	logging.Setup(logCfg)

	store, err := cfg.NewStore()
	if err != nil {
		return nil, err
	}

	upcoming, err := client.New(cfg.ClientConfig(store))
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return upcoming, nil
}

// parseParams turns key=value arguments into call parameters.
func parseParams(args []string) (client.Params, error) {
	params := make(client.Params, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", arg)
		}
		params[key] = value
	}
	return params, nil
}
