package data

import "embed"

var (
	// Defaults holds the built-in bot configuration and the reaction-role
	// message templates.
	//
	//go:embed gatekeeper.yaml templates.yaml
	Defaults embed.FS
)
