// Package config loads the gsclient TOML configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/gsclient/config.toml (default)
//  3. If the config file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing/empty, use defaults
//
// # TOML Format
//
//	endpoint = "https://grooveshark.com/more.php"
//	home_url = "http://grooveshark.com/"
//	client = "htmlshark"
//	client_revision = 20130520
//	salt = "nuggetsOfBaller"
//	state_path = "~/.local/share/gsclient/session.toml"
//	log_file = "~/.local/share/gsclient/gsclient.log"
//	log_level = "info"
//	request_timeout_seconds = 20
//	token_ttl_seconds = 600
//	wait_ceiling_seconds = 10
//	metrics_addr = ""            # e.g. "127.0.0.1:9464"; empty disables /metrics
//
// Every field is optional. Tilde expansion is performed for state_path and
// log_file. Non-positive durations fall back to their defaults.
//
// # Error Handling
//
// Load returns errors for path expansion failures, read errors other than
// os.ErrNotExist, and TOML parse errors ("parse config: ...").
package config
