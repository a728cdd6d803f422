// file: logger/logger.go

package logger

import (
	"os"
	"strings"

	"go-marketplace-api/config"

	"github.com/sirupsen/logrus"
)

// Log is the shared application logger. It is usable before Init is called.
var Log = logrus.New()

// Init configures Log from config.AppConfig.Log. Unset values fall back to
// info level and the text formatter, which is what tests get.
func Init() {
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.ToLower(config.AppConfig.Log.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	switch strings.ToLower(config.AppConfig.Log.Format) {
	case "json":
		Log.SetFormatter(&logrus.JSONFormatter{})
	default:
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
