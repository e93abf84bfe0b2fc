package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// ParseLevel converts a string log level to zerolog.Level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup builds the process logger: console with colors, plain console
// format to the given file, and a GELF writer when graylog is enabled in
// config. The file writer may be nil.
func Setup(file io.Writer) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(viper.GetString("logLevel")))
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	writers := []io.Writer{
		// write console format with colors to console
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
	}
	if file != nil {
		// write console format without colors to file
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	if viper.GetBool("graylog.enabled") {
		gelfWriter, err := gelf.NewWriter(viper.GetString("graylog.address"))
		if err == nil {
			writers = append(writers, gelfWriter)
		}
		// a missing graylog endpoint only loses the remote sink
	}

	mlw := zerolog.MultiLevelWriter(writers...)

	logger := zerolog.New(mlw).With().Timestamp().Logger()
	logger.Info().Str("loglevel", logger.GetLevel().String()).Msg("Logging set up")
	return logger
}

// OpenLogFile opens (creating directories as needed) the session log
// file under the configured logs directory.
func OpenLogFile() (*os.File, error) {
	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, err
	}
	name := "tracklog_" + time.Now().UTC().Format("20060102_150405") + ".log"
	return os.OpenFile(logsDir+"/"+name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
