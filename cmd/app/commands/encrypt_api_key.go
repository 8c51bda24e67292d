package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/allisson/orderflow/internal/credentials"
)

// RunEncryptAPIKey encrypts the internal API key with the keeper at keeperURL and prints the
// environment variables that make both services decrypt it at startup.
//
// For local development use keeperURL="base64key://<32-byte-url-safe-base64-key>". Production
// deployments use a cloud KMS or HashiCorp Vault keeper.
func RunEncryptAPIKey(ctx context.Context, writer io.Writer, keeperURL, apiKey, format string) error {
	if keeperURL == "" {
		return fmt.Errorf("--keeper-url is required (e.g., base64key://..., hashivault://..., awskms://...)")
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	ciphertext, err := credentials.Encrypt(ctx, keeperURL, apiKey)
	if err != nil {
		return err
	}

	if format == "json" {
		return writeJSON(writer, map[string]string{
			"SECRETS_KEEPER_URL":          keeperURL,
			"INTERNAL_API_KEY_CIPHERTEXT": ciphertext,
		})
	}

	_, err = fmt.Fprintf(writer,
		"# Copy these environment variables to both services\nSECRETS_KEEPER_URL=\"%s\"\nINTERNAL_API_KEY_CIPHERTEXT=\"%s\"\n",
		keeperURL, ciphertext,
	)
	return err
}
