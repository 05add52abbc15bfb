package iopath

import (
	"fmt"
	"os"
)

// EnvSASToken is the environment variable read by EnvTokenProvider.
const EnvSASToken = "AZURE_STORAGE_SAS_TOKEN"

// TokenProvider supplies shared-access-signature tokens for storage
// accounts. The token must grant sufficient access to list, read, and
// write blobs in the target containers.
type TokenProvider interface {
	SASToken(account string) (string, error)
}

// EnvTokenProvider loads the SAS token from the AZURE_STORAGE_SAS_TOKEN
// environment variable, using the same token for every account.
type EnvTokenProvider struct{}

func (EnvTokenProvider) SASToken(account string) (string, error) {
	token, ok := os.LookupEnv(EnvSASToken)
	if !ok || token == "" {
		return "", fmt.Errorf("iopath: missing required env variable %s", EnvSASToken)
	}
	return token, nil
}

// StaticTokenProvider returns a fixed token for every account. Useful for
// tests and short-lived tools that receive the token as a flag.
type StaticTokenProvider string

func (p StaticTokenProvider) SASToken(account string) (string, error) {
	return string(p), nil
}
