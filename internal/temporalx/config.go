package temporalx

import (
	"os"
	"strings"
)

// Config is the Temporal connection for the evidence cycle workflows. An
// empty Address disables Temporal wiring entirely; setting any mTLS path
// turns on TLS for the client dial.
type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string
}

func LoadConfig() Config {
	return Config{
		Address:   envTrim("TEMPORAL_ADDRESS"),
		Namespace: orDefault(envTrim("TEMPORAL_NAMESPACE"), "hooklab"),
		TaskQueue: orDefault(envTrim("TEMPORAL_TASK_QUEUE"), "hooklab"),

		ClientCertPath: envTrim("TEMPORAL_CLIENT_CERT_PATH"),
		ClientKeyPath:  envTrim("TEMPORAL_CLIENT_KEY_PATH"),
		ClientCAPath:   envTrim("TEMPORAL_CLIENT_CA_PATH"),
	}
}

func envTrim(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
