package util

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/appbaseio/migrator/model/reindex"
)

// DefaultMigrationTimeout bounds a single migration job.
const DefaultMigrationTimeout = time.Hour

// Config holds the migration defaults read from the environment.
type Config struct {
	BatchSize      int
	ScrollDuration string
	Timeout        time.Duration
	CheckInterval  string
	CheckIndices   []string
	Versions       reindex.MigrationVersion
}

// LoadConfig reads the MIGRATION_* env vars, falling back to the
// migrator's defaults for the unset ones.
func LoadConfig() (*Config, error) {
	batchSize, err := GetEnvInt("MIGRATION_BATCH_SIZE", reindex.DefaultBatchSize)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("MIGRATION_BATCH_SIZE must be positive, got %d", batchSize)
	}
	timeout, err := GetEnvDuration("MIGRATION_TIMEOUT", DefaultMigrationTimeout)
	if err != nil {
		return nil, err
	}
	versions := reindex.MigrationVersion{}
	if raw := os.Getenv("MIGRATION_VERSIONS"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &versions); err != nil {
			return nil, fmt.Errorf("MIGRATION_VERSIONS must be a JSON object of strings: %w", err)
		}
	}

	return &Config{
		BatchSize:      batchSize,
		ScrollDuration: GetEnvString("MIGRATION_SCROLL_DURATION", reindex.DefaultScrollDuration),
		Timeout:        timeout,
		CheckInterval:  os.Getenv("MIGRATION_CHECK_INTERVAL"),
		CheckIndices:   SplitList(os.Getenv("MIGRATION_CHECK_INDICES")),
		Versions:       versions,
	}, nil
}

// GetEnvString returns the value of name or fallback when it is unset.
func GetEnvString(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// GetEnvInt returns the integer value of name or fallback when it is unset.
func GetEnvInt(name string, fallback int) (int, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return parsed, nil
}

// GetEnvDuration returns the duration value of name or fallback when it is unset.
func GetEnvDuration(name string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", name, err)
	}
	return parsed, nil
}

// SplitList splits a comma separated list, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			out = append(out, token)
		}
	}
	return out
}

// LoadEnvFromFile loads env vars from envFile. Envs in the file
// should be in KEY=VALUE format.
func LoadEnvFromFile(envFile string) error {
	if envFile == "" {
		return nil
	}

	file, err := os.Open(envFile)
	if err != nil {
		return err
	}
	defer file.Close()

	envMap, err := ParseEnvFile(file)
	if err != nil {
		return err
	}

	for k, v := range envMap {
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}

	return nil
}

// ParseEnvFile parses the envFile for env variables in present in
// KEY=VALUE format. It ignores the comment lines starting with "#".
func ParseEnvFile(envFile io.Reader) (map[string]string, error) {
	envMap := make(map[string]string)

	scanner := bufio.NewScanner(envFile)
	var line string
	lineNumber := 0

	for scanner.Scan() {
		line = strings.TrimSpace(scanner.Text())
		lineNumber++

		// skip the lines starting with comment
		if strings.HasPrefix(line, "#") {
			continue
		}

		// skip empty line
		if len(line) == 0 {
			continue
		}

		fields := strings.SplitN(line, "=", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("can't parse line %d; line should be in KEY=VALUE format", lineNumber)
		}

		// KEY should not contain any whitespaces
		if strings.Contains(fields[0], " ") {
			return nil, fmt.Errorf("can't parse line %d; KEY contains whitespace", lineNumber)
		}

		key := fields[0]
		value := fields[1]

		if key == "" {
			return nil, fmt.Errorf("can't parse line %d; KEY can't be empty string", lineNumber)
		}
		envMap[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return envMap, nil
}
