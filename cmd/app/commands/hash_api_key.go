package commands

import (
	"fmt"
	"io"

	"github.com/allisson/orderflow/internal/credentials"
)

// RunHashAPIKey prints the Argon2id hash of the internal API key. The customer service accepts
// it as INTERNAL_API_KEY_HASH, so only the order service needs the plaintext key.
func RunHashAPIKey(writer io.Writer, apiKey, format string) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	hashed, err := credentials.HashKey(apiKey)
	if err != nil {
		return err
	}

	if format == "json" {
		return writeJSON(writer, map[string]string{"INTERNAL_API_KEY_HASH": hashed})
	}

	_, err = fmt.Fprintf(writer,
		"# Copy this environment variable to the customer service\nINTERNAL_API_KEY_HASH='%s'\n", hashed)
	return err
}
