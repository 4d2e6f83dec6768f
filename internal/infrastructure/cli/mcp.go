package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	inframcp "github.com/felixgeelhaar/prscore/internal/infrastructure/mcp"
)

var (
	mcpTransport string
	mcpAddr      string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the prscore MCP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("PRSCORE_SKIP_MCP_START") == "true" {
			return nil
		}
		root, err := getProjectRoot()
		if err != nil {
			return err
		}
		opts := servicesOptions
		opts.Override = applyFlagOverrides
		server, err := inframcp.NewServer(root, opts)
		if err != nil {
			return err
		}

		switch strings.ToLower(mcpTransport) {
		case "stdio", "":
			return server.ServeStdio(cmd.Context())
		case "http":
			return server.ServeHTTP(cmd.Context(), mcpAddr)
		default:
			return fmt.Errorf("unsupported transport: %s", mcpTransport)
		}
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTransport, "transport", "stdio", "Transport to use (stdio, http)")
	mcpCmd.Flags().StringVar(&mcpAddr, "addr", ":8080", "Address for the http transport")
	RootCmd.AddCommand(mcpCmd)
}
