package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/drug-repurposing-engine/internal/setup"
)

var setupBinary string

// setupCmd groups host-integration subcommands.
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure MCP host integrations",
}

var setupClaudeCmd = &cobra.Command{
	Use:   "claude-desktop",
	Short: "Register the MCP server with Claude Desktop",
	Long: `Register the MCP server in the Claude Desktop configuration so the
engine's tools appear in the app. The command locates the mcp-server
binary automatically; pass --binary to point at a specific build.`,
	RunE: runSetupClaude,
}

func init() {
	setupCmd.AddCommand(setupClaudeCmd)
	rootCmd.AddCommand(setupCmd)

	setupClaudeCmd.Flags().StringVar(&setupBinary, "binary", "", "path to the mcp-server binary (default: auto-detect)")
}

func runSetupClaude(cmd *cobra.Command, args []string) error {
	configPath, err := setup.HostConfigPath()
	if err != nil {
		return err
	}

	binaryPath, err := setup.RegisterMCPServer(configPath, setupBinary)
	if err != nil {
		return err
	}

	fmt.Printf("Registered %q in %s\n", setup.ServerName, configPath)
	fmt.Printf("Server binary: %s\n", binaryPath)
	fmt.Println("Restart Claude Desktop to pick up the new tools.")
	return nil
}
