package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pelletier/go-toml/v2"
	"github.com/quorum-chat/quorum/internal/client"
	"github.com/quorum-chat/quorum/internal/credentials"
)

// Config holds the client configuration
type Config struct {
	Server ServerConfig `toml:"server"`
	Vault  VaultConfig  `toml:"vault"`
}

// ServerConfig holds server connection settings
type ServerConfig struct {
	Address string `toml:"address"`
}

// VaultConfig holds credential store settings
type VaultConfig struct {
	Path string `toml:"path"`
}

// DefaultConfig returns the default client configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "ws://localhost:8080",
		},
	}
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	serverAddr := flag.String("server", "", "Server address (overrides config)")
	token := flag.String("token", "", "Store this session token and exit")
	flag.Parse()

	config := DefaultConfig()

	// Try default config paths if not specified
	if *configPath == "" {
		defaultPaths := []string{
			"./quorum.toml",
			os.ExpandEnv("$HOME/.config/quorum/client.toml"),
		}
		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				*configPath = path
				break
			}
		}
	}

	if *configPath != "" {
		if err := loadConfig(*configPath, config); err != nil {
			log.Printf("Warning: Failed to load config: %v", err)
		}
	}

	if *serverAddr != "" {
		config.Server.Address = *serverAddr
	}

	vaultPath := config.Vault.Path
	if vaultPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		dir := filepath.Join(homeDir, ".quorum")
		if err := os.MkdirAll(dir, 0700); err != nil {
			log.Fatalf("Failed to create %s: %v", dir, err)
		}
		vaultPath = filepath.Join(dir, "credentials.db")
	}

	creds, err := credentials.Open(vaultPath)
	if err != nil {
		log.Fatalf("Failed to open credential store: %v", err)
	}
	defer creds.Close()

	if *token != "" {
		if err := creds.SetToken(*token); err != nil {
			log.Fatalf("Failed to store token: %v", err)
		}
		fmt.Println("Token stored.")
		return
	}

	transport := client.NewWebSocketTransport(config.Server.Address)
	api, err := client.NewAPI(config.Server.Address, creds)
	if err != nil {
		log.Fatalf("Invalid server address: %v", err)
	}

	session := client.NewSession(transport, api, creds)

	prefsPath := filepath.Join(filepath.Dir(vaultPath), "prefs.json")
	if prefs, err := client.LoadPrefs(prefsPath); err != nil {
		log.Printf("Warning: Failed to load preferences: %v", err)
	} else {
		session.SetPreferences(prefs)
	}

	if err := session.Open(); err != nil {
		log.Fatalf("Failed to open session: %v", err)
	}
	defer session.Close()

	app := client.NewApp(session)
	p := tea.NewProgram(app, tea.WithAltScreen())

	// Pump session notifications into the program
	go func() {
		for msg := range session.Events() {
			p.Send(msg)
		}
	}()

	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}
}

func loadConfig(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}
