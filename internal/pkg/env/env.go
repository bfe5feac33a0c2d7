package env

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

var envFiles = []string{
	".env",          // Current directory
	"../../.env",    // From cmd/plandeck to project root
	"../../../.env", // Fallback for deeper nesting
}

// SetupEnvFile loads the first .env file it finds into the process
// environment so typed config can pick it up. Variables that are already set
// win over the file. It returns the file used, or "" when there is none,
// which is normal in containers.
func SetupEnvFile() (string, error) {
	for _, envFile := range envFiles {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Load(envFile); err != nil {
			return envFile, fmt.Errorf("load %s: %w", envFile, err)
		}
		return envFile, nil
	}
	return "", nil
}
