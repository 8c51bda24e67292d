// Package credentials resolves the API key shared by the order and customer services.
//
// The key is either configured in plaintext (INTERNAL_API_KEY) or as a base64 ciphertext
// (INTERNAL_API_KEY_CIPHERTEXT) decrypted at startup with a gocloud.dev secrets keeper
// (SECRETS_KEEPER_URL). Supported keepers: base64key://, hashivault://, awskms://,
// gcpkms:// and azurekeyvault://.
package credentials

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"gocloud.dev/secrets"

	// Register the secrets keeper drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"

	apperrors "github.com/allisson/orderflow/internal/errors"
)

// Keeper is the subset of *secrets.Keeper used here.
type Keeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// OpenKeeper opens a keeper from a gocloud.dev secrets URL.
func OpenKeeper(ctx context.Context, keeperURL string) (Keeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keeperURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open secrets keeper: %w", err)
	}
	return keeper, nil
}

// Source describes where the internal API key comes from.
type Source struct {
	Plaintext  string
	Ciphertext string
	KeeperURL  string
}

// Resolve returns the internal API key. The ciphertext takes precedence over the plaintext.
// An empty result is not an error: the customer API then rejects every request.
func Resolve(ctx context.Context, src Source) (string, error) {
	if src.Ciphertext == "" {
		return src.Plaintext, nil
	}

	if src.KeeperURL == "" {
		return "", apperrors.Wrap(
			apperrors.ErrInvalidInput,
			"SECRETS_KEEPER_URL is required when INTERNAL_API_KEY_CIPHERTEXT is set",
		)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(strings.TrimSpace(src.Ciphertext))
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "internal API key ciphertext is not valid base64")
	}

	keeper, err := OpenKeeper(ctx, src.KeeperURL)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = keeper.Close()
	}()

	plaintext, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt internal API key: %w", err)
	}

	return string(plaintext), nil
}

// Encrypt encrypts plaintext with the keeper and returns the base64 ciphertext accepted by
// INTERNAL_API_KEY_CIPHERTEXT.
func Encrypt(ctx context.Context, keeperURL, plaintext string) (string, error) {
	if plaintext == "" {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, "plaintext must not be empty")
	}

	keeper, err := OpenKeeper(ctx, keeperURL)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = keeper.Close()
	}()

	ciphertext, err := keeper.Encrypt(ctx, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt internal API key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
