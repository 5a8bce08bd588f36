package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerName is the key the engine registers under in an MCP host's
// server map.
const ServerName = "drug-repurposing"

const mcpBinaryName = "mcp-server"

// HostConfig mirrors the Claude Desktop configuration file structure.
type HostConfig struct {
	MCPServers map[string]HostServerEntry `json:"mcpServers"`
}

// HostServerEntry describes one MCP server registration.
type HostServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// HostConfigPath returns the path of Claude Desktop's config file for
// the current platform.
func HostConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "Claude")
		} else {
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadHostConfig reads an MCP host configuration; a missing file yields
// an empty configuration rather than an error.
func LoadHostConfig(configPath string) (*HostConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &HostConfig{MCPServers: make(map[string]HostServerEntry)}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg HostConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]HostServerEntry)
	}
	return &cfg, nil
}

// SaveHostConfig writes the configuration back, creating the directory
// when needed.
func SaveHostConfig(configPath string, cfg *HostConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// RegisterMCPServer adds or updates the engine's entry in the host
// config at configPath. An empty binaryPath triggers a search of the
// usual install locations. Returns the registered binary path.
func RegisterMCPServer(configPath, binaryPath string) (string, error) {
	cfg, err := LoadHostConfig(configPath)
	if err != nil {
		return "", err
	}

	if binaryPath == "" {
		binaryPath, err = findMCPBinary()
		if err != nil {
			return "", fmt.Errorf("could not find server binary: %w", err)
		}
	}

	cfg.MCPServers[ServerName] = HostServerEntry{
		Command: binaryPath,
		Args:    []string{},
	}

	if err := SaveHostConfig(configPath, cfg); err != nil {
		return "", err
	}
	return binaryPath, nil
}

func findMCPBinary() (string, error) {
	if path, err := exec.LookPath(mcpBinaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + mcpBinaryName,
		"./build/" + mcpBinaryName,
		filepath.Join(os.Getenv("HOME"), ".local", "bin", mcpBinaryName),
		"/usr/local/bin/" + mcpBinaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if absPath, err := filepath.Abs(loc); err == nil {
				return absPath, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary '%s' not found in common locations", mcpBinaryName)
}
