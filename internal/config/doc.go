// Package config loads the state-ledger configuration.
//
// # Configuration File
//
// The file is found at, in order:
//
//  1. The path in LEDGER_CONFIG
//  2. $XDG_CONFIG_HOME/ledger/config.yaml
//  3. ~/.config/ledger/config.yaml
//
// Files ending in .toml are decoded as TOML, anything else as YAML.
//
// # Environment
//
// A .env file in the working directory and one next to the config file are
// loaded before parsing. Values already present in the environment win.
// ${VAR_NAME} references in the file are then expanded:
//
//	matrix:
//	  access_token: "${LEDGER_MATRIX_ACCESS_TOKEN}"
//
// LEDGER_MATRIX_ACCESS_TOKEN also overrides matrix.access_token directly.
//
// # Sections
//
//	matrix:
//	  homeserver: "https://matrix.org"
//	  user_id: "@ledger:matrix.org"
//	  allowed_rooms: []
//	  allowed_users: []
//	  command_prefix: ""
//	  typing_indicator: false
//	ledger:
//	  backend: "sqlite"  # sqlite, files, memory
//	  path: "~/.local/share/ledger/ledger.db"
//	bot:
//	  locale: "en"       # en, ru
//	  dedupe_ttl: "10m"
//	  dedupe_size: 1000
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # text, json
//	metrics:
//	  enabled: false
//	  addr: ":9464"
//	  path: "/metrics"
//	  refresh_interval: "30s"
//
// Load validates everything except the matrix section, which the admin CLI
// does not need. The bot calls MatrixConfig.Validate itself.
package config
