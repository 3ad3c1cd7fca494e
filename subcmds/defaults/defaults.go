// Copyright (c) 2025 BVK Chaitanya

// Package defaults resolves the default paths and ports from the TCBOT_*
// environment variables.
package defaults

import (
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
)

func ServerPort() int {
	const defaultValue = 10100

	value := os.Getenv("TCBOT_SERVER_PORT")
	if len(value) == 0 {
		return defaultValue
	}
	port, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		slog.Warn("TCBOT_SERVER_PORT must be a decimal port number (ignored)", "value", value)
		return defaultValue
	}
	return int(port)
}

func DataDir() string {
	if value := os.Getenv("TCBOT_DATA_DIR"); len(value) != 0 {
		if filepath.IsAbs(value) {
			return value
		}
		slog.Warn("TCBOT_DATA_DIR must be an absolute path (ignored)", "value", value)
	}

	u, err := user.Current()
	if err != nil || len(u.HomeDir) == 0 {
		slog.Warn("could not determine the home directory; using current directory for data", "err", err)
		return "."
	}
	return filepath.Join(u.HomeDir, ".tcbot")
}

func LogDir(dataDir string) string {
	value := os.ExpandEnv(os.Getenv("TCBOT_LOG_DIR"))
	if len(value) == 0 {
		return filepath.Join(dataDir, "logs")
	}
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(dataDir, value)
}
