package config

import (
	goerrors "github.com/agilira/go-errors"
)

// Error codes
const (
	CodeReadFailed   = "CONFIG_1701"
	CodeParseFailed  = "CONFIG_1702"
	CodeInvalidValue = "CONFIG_1703"
	CodeInvalidEnv   = "CONFIG_1704"
	CodeWatchFailed  = "CONFIG_1705"
)

func readFailed(path string, cause error) *goerrors.Error {
	return goerrors.Wrap(cause, CodeReadFailed, "Failed to read configuration").
		WithUserMessage("The configuration file could not be read").
		WithContext("path", path).
		WithSeverity("error")
}

func parseFailed(path string, cause error) *goerrors.Error {
	return goerrors.Wrap(cause, CodeParseFailed, "Failed to parse configuration").
		WithUserMessage("The configuration file is not valid YAML for this host").
		WithContext("path", path).
		WithSeverity("error")
}

func invalidValue(field string, value any, reason string) *goerrors.Error {
	return goerrors.New(CodeInvalidValue, "Invalid configuration value: "+field).
		WithUserMessage(reason).
		WithContext("field", field).
		WithContext("value", value).
		WithSeverity("error")
}

func invalidEnv(name, value string, cause error) *goerrors.Error {
	return goerrors.Wrap(cause, CodeInvalidEnv, "Invalid environment override: "+name).
		WithUserMessage("An environment override could not be parsed").
		WithContext("variable", name).
		WithContext("value", value).
		WithSeverity("error")
}

func watchFailed(path string, cause error) *goerrors.Error {
	return goerrors.Wrap(cause, CodeWatchFailed, "Failed to watch configuration").
		WithContext("path", path).
		WithSeverity("warning").
		AsRetryable()
}
