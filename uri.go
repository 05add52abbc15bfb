package iopath

import (
	"fmt"
	"strings"
)

// SupportedSchemes lists the URI scheme spellings the handler accepts.
// Both address the same backend; blob:// is the legacy alias.
var SupportedSchemes = []string{"az://", "blob://"}

// URI identifies one blob (or blob prefix) in the backend's
// account/container/path namespace.
type URI struct {
	Account   string
	Container string
	Path      string
}

// ParseURI splits an az:// or blob:// URI into its components. The path
// component may be empty (addressing the container itself, e.g. for
// listing).
func ParseURI(uri string) (URI, error) {
	for _, scheme := range SupportedSchemes {
		if !strings.HasPrefix(uri, scheme) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(uri, scheme), "/", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return URI{}, fmt.Errorf("%w: %q (want scheme://account/container/path)", ErrUnsupportedURI, uri)
		}
		u := URI{Account: parts[0], Container: parts[1]}
		if len(parts) == 3 {
			u.Path = parts[2]
		}
		return u, nil
	}
	return URI{}, fmt.Errorf("%w: %q", ErrUnsupportedURI, uri)
}

// ServiceURL returns the HTTPS endpoint of the URI's storage account.
func (u URI) ServiceURL() string {
	return fmt.Sprintf("https://%s.blob.core.windows.net", u.Account)
}

// String renders the URI in its canonical az:// spelling.
func (u URI) String() string {
	if u.Path == "" {
		return fmt.Sprintf("az://%s/%s", u.Account, u.Container)
	}
	return fmt.Sprintf("az://%s/%s/%s", u.Account, u.Container, u.Path)
}
