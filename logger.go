package tendercrawler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/api/option"
)

// Logger is the printf style logger used across the crawler.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Fatal(format string, args ...interface{})
	Summary(format string, args ...interface{})
	Html(html, name, message string)
	Sync() error
}

// defaultLogger writes to stdout and storage/logs/<site>/<date>_application.log,
// and mirrors warnings and above to Cloud Logging when enabled.
type defaultLogger struct {
	sugar     *zap.SugaredLogger
	directory string
	cloud     *logging.Logger
	client    *logging.Client
}

type loggerOptions struct {
	SiteName        string
	StorageDir      string
	Level           string
	CloudProjectID  string
	CredentialsPath string
}

func newDefaultLogger(opts loggerOptions) (*defaultLogger, error) {
	currentDate := time.Now().Format("2006-01-02")
	directory := filepath.Join(opts.StorageDir, "logs", opts.SiteName)
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFilePath := filepath.Join(directory, currentDate+"_application.log")
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := zap.NewAtomicLevelAt(parseLevel(opts.Level))

	fileEncoder := zap.NewProductionEncoderConfig()
	fileEncoder.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoder := zap.NewDevelopmentEncoderConfig()
	consoleEncoder.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)
	consoleEncoder.EncodeLevel = zapcore.CapitalColorLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoder), zapcore.AddSync(file), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoder), zapcore.Lock(os.Stdout), level),
	)
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).With(zap.String("site", opts.SiteName))

	l := &defaultLogger{
		sugar:     z.Sugar(),
		directory: directory,
	}

	if opts.CloudProjectID != "" {
		var clientOpts []option.ClientOption
		if opts.CredentialsPath != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsPath))
		}
		client, err := logging.NewClient(context.Background(), opts.CloudProjectID, clientOpts...)
		if err != nil {
			l.Error("Failed to create cloud logging client: %v", err)
		} else {
			l.client = client
			l.cloud = client.Logger("tendercrawler-" + opts.SiteName)
		}
	}

	return l, nil
}

// newNopLogger discards everything. Used by tests and library callers without a site.
func newNopLogger() *defaultLogger {
	return &defaultLogger{sugar: zap.NewNop().Sugar()}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *defaultLogger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *defaultLogger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *defaultLogger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
	l.toCloud(logging.Warning, format, args...)
}

func (l *defaultLogger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
	l.toCloud(logging.Error, format, args...)
}

func (l *defaultLogger) Fatal(format string, args ...interface{}) {
	l.toCloud(logging.Critical, format, args...)
	if l.client != nil {
		_ = l.client.Close()
	}
	l.sugar.Fatalf(format, args...)
}

// Summary records end of run figures.
func (l *defaultLogger) Summary(format string, args ...interface{}) {
	l.sugar.With("summary", true).Infof(format, args...)
	l.toCloud(logging.Notice, format, args...)
}

// Html logs message as an error and keeps the page markup next to the log file.
func (l *defaultLogger) Html(html, name, message string) {
	l.Error("%s", message)
	if l.directory == "" || html == "" {
		return
	}
	dir := filepath.Join(l.directory, "html")
	if err := os.MkdirAll(dir, 0755); err != nil {
		l.sugar.Errorf("HTML: %v", err)
		return
	}
	fileName := fmt.Sprintf("%s_%s.html", sanitizeFileName(name), time.Now().Format("150405"))
	if err := os.WriteFile(filepath.Join(dir, fileName), []byte(html), 0644); err != nil {
		l.sugar.Errorf("HTML: %v", err)
	}
}

func (l *defaultLogger) Sync() error {
	if l.client != nil {
		if err := l.client.Close(); err != nil {
			return err
		}
	}
	_ = l.sugar.Sync()
	return nil
}

func (l *defaultLogger) toCloud(severity logging.Severity, format string, args ...interface{}) {
	if l.cloud == nil {
		return
	}
	l.cloud.Log(logging.Entry{
		Severity: severity,
		Payload:  fmt.Sprintf(format, args...),
	})
}
