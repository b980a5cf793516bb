package common

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

// --------------------------------------------------------------------------
// Custom Logger (implements dragonboats logger.ILogger)
// --------------------------------------------------------------------------

// voldLogger implements the ILogger interface with custom formatting
type voldLogger struct {
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *voldLogger) SetLevel(level logger.LogLevel) {
	l.level = level
}

func (l *voldLogger) Debugf(format string, args ...interface{}) {
	if l.level >= logger.DEBUG {
		l.log("DEBUG", format, args...)
	}
}

func (l *voldLogger) Infof(format string, args ...interface{}) {
	if l.level >= logger.INFO {
		l.log("INFO", format, args...)
	}
}

func (l *voldLogger) Warningf(format string, args ...interface{}) {
	if l.level >= logger.WARNING {
		l.log("WARN", format, args...)
	}
}

func (l *voldLogger) Errorf(format string, args ...interface{}) {
	if l.level >= logger.ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *voldLogger) Panicf(format string, args ...interface{}) {
	if l.level >= logger.CRITICAL {
		panic(fmt.Sprintf(format, args...))
	}
}

// log formats and writes a log message
func (l *voldLogger) log(levelStr string, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	l.logger.Printf("%-5s | %-15s | %s", levelStr, l.name, message)
}

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

// CreateLogger implements dragonboats logger.Factory
func CreateLogger(pkgName string) logger.ILogger {
	stdLogger := log.New(os.Stderr, "", log.Ldate|log.Ltime)

	return &voldLogger{
		name:   pkgName,
		level:  logger.INFO,
		logger: stdLogger,
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parseLogLevel converts a string level to logger.LogLevel
func parseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	default:
		return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
	}
}

// --------------------------------------------------------------------------
// Logger initialization
// --------------------------------------------------------------------------

// LoggerNames are the packages of the client that log
var LoggerNames = []string{"transport", "session", "bootstrap", "client"}

// InitLoggers installs the custom logger format and sets the level of all client loggers
func InitLoggers(config ClientConfig) error {
	level, err := parseLogLevel(config.LogLevel)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)

	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(level)
	}
	return nil
}
