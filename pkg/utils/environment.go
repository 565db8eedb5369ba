package utils

import "strings"

type RapidaEnvironment string

const (
	PRODUCTION  RapidaEnvironment = "production"
	DEVELOPMENT RapidaEnvironment = "development"
)

func (e RapidaEnvironment) Get() string {
	return string(e)
}

// FromEnvironmentStr maps a configured environment name to a known
// environment; anything unrecognised is treated as development.
func FromEnvironmentStr(env string) RapidaEnvironment {
	switch strings.ToLower(env) {
	case "production":
		return PRODUCTION
	default:
		return DEVELOPMENT
	}
}
