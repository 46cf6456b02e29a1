package internal

import (
	"log/slog"
	"os"
	"os/exec"
)

// JoinDefaultBridge connects the container the tests run in to Docker's
// default bridge network, where testcontainers starts its containers. It
// only does anything when GATEKEEPER_DEVCONTAINER is set.
func JoinDefaultBridge() {
	if os.Getenv("GATEKEEPER_DEVCONTAINER") == "" {
		return
	}

	hostname, err := os.Hostname()
	if err != nil {
		return
	}

	if out, err := exec.Command("docker", "network", "connect", "bridge", hostname).CombinedOutput(); err != nil {
		slog.Debug("can't join the docker bridge network", "host", hostname, "err", err, "output", string(out))
	}
}
