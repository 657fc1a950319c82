package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ggui-dev/ggdirect/internal/client"
	"github.com/ggui-dev/ggdirect/internal/gateway"
	"github.com/ggui-dev/ggdirect/internal/observability"
	"github.com/ggui-dev/ggdirect/internal/service"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

var logLevel string

func main() {
	rootCmd := &cobra.Command{
		Use:   "ggdirectl",
		Short: "GGDirect terminal-rendering transport tools",
		Long: `ggdirectl speaks the GGDirect wire protocol: a role-reversal TCP
handshake followed by a stream of fixed-layout terminal cell buffers.

The client resolves the service's rendezvous port from the discovery
file, performs the handshake, and streams a demonstration buffer. The
serve command runs the test-harness service that the client talks to.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		clientCmd(),
		serveCmd(),
		gatewayCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ggdirectl: %v\n", err)
		os.Exit(1)
	}
}

func clientCmd() *cobra.Command {
	var (
		configPath  string
		gatewayPath string
		wait        bool
	)

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Run one demonstration client session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadClientConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("gateway") {
				cfg.GatewayPath = gatewayPath
			}
			if cmd.Flags().Changed("wait") {
				cfg.WaitForGateway = wait
			}

			log := observability.InitLogger("ggdirect-client", logLevel)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return client.New(cfg, log).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	cmd.Flags().StringVar(&gatewayPath, "gateway", gateway.DefaultPath, "discovery file path")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the discovery file to appear")
	return cmd
}

func serveCmd() *cobra.Command {
	var (
		configPath string
		listenAddr string
		adminAddr  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the test-harness service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServiceConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listenAddr
			}
			if cmd.Flags().Changed("admin") {
				cfg.AdminAddr = adminAddr
			}

			log := observability.InitLogger("ggdirect-serve", logLevel)
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return service.New(cfg, log).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:0", "gateway listener bind address")
	cmd.Flags().StringVar(&adminAddr, "admin", "", "admin endpoint address (health, metrics)")
	return cmd
}

func gatewayCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Resolve and print the discovered endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, err := gateway.Resolve(path)
			if err != nil {
				return err
			}
			fmt.Println(ep.Addr())
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", gateway.DefaultPath, "discovery file path")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ggdirectl %s (%s, %s)\n", version, commit, runtime.Version())
		},
	}
}
