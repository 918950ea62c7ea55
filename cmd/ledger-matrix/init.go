// ABOUTME: Interactive "init" command that writes a starter config
// ABOUTME: The access token goes to a .env file beside the config, never into the YAML

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/2389/state-ledger/internal/config"
)

// initAnswers are the values gathered by runInit.
type initAnswers struct {
	Homeserver    string
	UserID        string
	AccessToken   string
	Backend       string
	Path          string
	Locale        string
	CommandPrefix string
}

func runInit(in io.Reader, out io.Writer, configPath string) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(out, banner)
	fmt.Fprintln(out, "    Interactive Setup")
	fmt.Fprintln(out, "    -----------------")
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)
	ask := func(prompt, def string) string {
		green.Fprint(out, "    ▶ ")
		if def != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, def)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return def
		}
		return answer
	}

	if _, err := os.Stat(configPath); err == nil {
		yellow.Fprintf(out, "    Config already exists at %s\n", configPath)
		if strings.ToLower(ask("Overwrite? [y/N]", "")) != "y" {
			fmt.Fprintln(out, "    Aborted.")
			return nil
		}
		fmt.Fprintln(out)
	}

	answers := initAnswers{
		Homeserver:  ask("Matrix homeserver URL", "https://matrix.org"),
		UserID:      ask("Bot user ID (e.g. @ledger:matrix.org)", ""),
		AccessToken: ask("Access token (stored in .env, leave blank to set "+config.EnvAccessToken+" yourself)", ""),
		Backend:     ask("Ledger backend (sqlite, files)", "sqlite"),
	}
	defaultPath := filepath.Join(config.DefaultDataPath(), "ledger.db")
	if answers.Backend == "files" {
		defaultPath = filepath.Join(config.DefaultDataPath(), "emails_by_state")
	}
	answers.Path = ask("Ledger path", defaultPath)
	answers.Locale = ask("Message language (en, ru)", "en")
	answers.CommandPrefix = ask("Command prefix (optional, e.g. '!ledger')", "")

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(starterConfig(answers)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintln(out)
	green.Fprintf(out, "    ✓ Config written to %s\n", configPath)

	if answers.AccessToken != "" {
		envPath := filepath.Join(configDir, ".env")
		if err := godotenv.Write(map[string]string{config.EnvAccessToken: answers.AccessToken}, envPath); err != nil {
			return fmt.Errorf("writing env file: %w", err)
		}
		if err := os.Chmod(envPath, 0600); err != nil {
			return fmt.Errorf("securing env file: %w", err)
		}
		green.Fprintf(out, "    ✓ Access token written to %s\n", envPath)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "    Next steps:")
	if answers.AccessToken == "" {
		fmt.Fprintf(out, "    1. export %s=...\n", config.EnvAccessToken)
		fmt.Fprintln(out, "    2. Run: ledger-matrix")
	} else {
		fmt.Fprintln(out, "    1. Run: ledger-matrix")
	}
	fmt.Fprintln(out)

	return nil
}

// starterConfig renders the YAML written by init. Values are emitted as
// double-quoted scalars; %q output is valid YAML for these inputs.
func starterConfig(a initAnswers) string {
	return fmt.Sprintf(`# ledger-matrix configuration
# Generated by ledger-matrix init

matrix:
  homeserver: %q
  user_id: %q
  # Read from the environment or the .env file next to this config
  access_token: "${%s}"
  # Only respond in these rooms / to these users (empty = everyone)
  allowed_rooms: []
  allowed_users: []
  # Require messages start with this prefix (empty = respond to all)
  command_prefix: %q
  typing_indicator: true

ledger:
  backend: %q
  path: %q

bot:
  locale: %q
  dedupe_ttl: "10m"
  dedupe_size: 1000

logging:
  level: "info"
  format: "text"

metrics:
  enabled: false
  addr: ":9464"
  path: "/metrics"
  refresh_interval: "30s"
`, a.Homeserver, a.UserID, config.EnvAccessToken, a.CommandPrefix, a.Backend, a.Path, a.Locale)
}
