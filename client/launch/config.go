package launch

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type env struct {
	UnixSocket string `envconfig:"ADE_LAUNCHD_SOCK"`
}

// SocketPath returns the daemon socket: $ADE_LAUNCHD_SOCK or the per-user
// default.
func SocketPath() (string, error) {
	var e env
	if err := envconfig.Process("", &e); err != nil {
		return "", fmt.Errorf("failed to read environment: %w", err)
	}
	if e.UnixSocket != "" {
		if strings.HasPrefix(e.UnixSocket, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			return strings.Replace(e.UnixSocket, "~", home, 1), nil
		}
		return e.UnixSocket, nil
	}

	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	return fmt.Sprintf("/tmp/ade-%s/launchd", currentUser.Uid), nil
}
