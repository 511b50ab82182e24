package config

import "github.com/worldsofmind/lab-newsletter-generator/pkg/contracts"

// Application constants
const (
	AppName    = "LAB Newsletter Generator"
	AppVersion = contracts.Version

	// ServiceName identifies traces and metrics.
	ServiceName = "lab-newsletter-generator"
)
