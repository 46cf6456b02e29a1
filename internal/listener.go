package internal

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// ParseBindNetFromAddr determines the bind network and address from a URL
// style address such as unix:///run/gatekeeper.sock or :9090.
func ParseBindNetFromAddr(address string) (string, string, error) {
	defaultScheme := "http://"
	if !strings.Contains(address, "://") {
		if strings.HasPrefix(address, ":") {
			address = defaultScheme + "localhost" + address
		} else {
			address = defaultScheme + address
		}
	}

	bindURI, err := url.Parse(address)
	if err != nil {
		return "", "", fmt.Errorf("failed to parse bind URL: %w", err)
	}

	switch bindURI.Scheme {
	case "unix":
		return "unix", bindURI.Path, nil
	case "tcp", "http", "https":
		return "tcp", bindURI.Host, nil
	default:
		return "", "", fmt.Errorf("unsupported network scheme %s in address %s", bindURI.Scheme, address)
	}
}

// SetupListener binds network/address and returns the listener and a
// printable URL for it. Unix sockets get their mode set to socketMode, an
// octal string like "0770".
func SetupListener(network, address, socketMode string) (net.Listener, string, error) {
	if network == "" {
		var err error
		network, address, err = ParseBindNetFromAddr(address)
		if err != nil {
			return nil, "", err
		}
	}

	var formattedAddress string
	switch network {
	case "unix":
		formattedAddress = "unix:" + address
	case "tcp":
		if strings.HasPrefix(address, ":") {
			formattedAddress = "http://localhost" + address
		} else {
			formattedAddress = "http://" + address
		}
	default:
		formattedAddress = fmt.Sprintf(`(%s) %s`, network, address)
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		return nil, "", fmt.Errorf("failed to bind to %s: %w", formattedAddress, err)
	}

	if network == "unix" {
		mode, err := strconv.ParseUint(socketMode, 8, 0)
		if err != nil {
			listener.Close()
			return nil, "", fmt.Errorf("could not parse socket mode %s: %w", socketMode, err)
		}

		if err := os.Chmod(address, os.FileMode(mode)); err != nil {
			listener.Close()
			return nil, "", fmt.Errorf("could not change socket mode: %w", err)
		}
	}

	return listener, formattedAddress, nil
}
