package types

import (
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog"
)

// PackageType selects how candidates are collected for a repository.
type PackageType string

const (
	PackageTypeDocker  PackageType = "docker"
	PackageTypeGeneric PackageType = "generic"
)

// ParsePackageType maps the package type reported by the store onto a
// collection variant. Every non-docker layout is searched by usage.
func ParsePackageType(value string) PackageType {
	if strings.EqualFold(strings.TrimSpace(value), string(PackageTypeDocker)) {
		return PackageTypeDocker
	}
	return PackageTypeGeneric
}

type KeepReason string

const (
	KeepReasonNone     KeepReason = ""
	KeepReasonExcluded KeepReason = "excluded"
	KeepReasonFresh    KeepReason = "fresh"
	KeepReasonBackfill KeepReason = "backfill"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

var logLevels = map[LogLevel]zerolog.Level{
	LogLevelDebug: zerolog.DebugLevel,
	LogLevelInfo:  zerolog.InfoLevel,
	LogLevelWarn:  zerolog.WarnLevel,
	LogLevelError: zerolog.ErrorLevel,
	LogLevelFatal: zerolog.FatalLevel,
}

// ParseLogLevel accepts the level names case-insensitively and rejects
// anything else.
func ParseLogLevel(value string) (LogLevel, error) {
	level := LogLevel(strings.ToUpper(strings.TrimSpace(value)))
	if _, ok := logLevels[level]; !ok {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid log level " + value + " (expected DEBUG, INFO, WARN, ERROR or FATAL)")
	}
	return level, nil
}

func (l LogLevel) ZerologLevel() zerolog.Level {
	if level, ok := logLevels[l]; ok {
		return level
	}
	return zerolog.InfoLevel
}
