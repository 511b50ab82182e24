// Package config provides centralized configuration for the newsletter
// generator CLI and web service.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file (config.yaml or configs/config.yaml)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern NEWSLETTER_<SECTION>_<KEY>:
//
//	NEWSLETTER_SERVER_PORT=8080
//	NEWSLETTER_INGEST_MAX_HEADER_OFFSET=20
//	NEWSLETTER_INGEST_CONFIDENCE_THRESHOLD=50
//	NEWSLETTER_SURVEY_QUESTIONS="Courtesy,Overall satisfaction"
//	NEWSLETTER_LOGGING_LEVEL=debug
//
// Header aliases can only be set in the YAML file:
//
//	aliases:
//	  abbreviation: ["staff code"]
//	  officer: ["handled by"]
//
// # Validation
//
// The loaded configuration is validated with go-playground/validator struct
// tags; Load returns an error describing the first invalid field.
package config
