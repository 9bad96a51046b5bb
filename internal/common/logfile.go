// Package common holds small helpers shared by the command layer.
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LogDir returns the directory daily log files are written to.
func LogDir(home, appName string) string {
	return filepath.Join(home, "."+appName, "logs")
}

// OpenLogFile opens (creating if needed) today's log file for appName under
// the user's home directory.
func OpenLogFile(appName string) (*os.File, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return openLogFileIn(LogDir(homeDir, appName), appName, time.Now())
}

func openLogFileIn(logsDir, appName string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	logFileName := fmt.Sprintf("%s-%s.log", appName, now.Format(time.DateOnly))
	logFile, err := os.OpenFile(filepath.Join(logsDir, logFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return logFile, nil
}
