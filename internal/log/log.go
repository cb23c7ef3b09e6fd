package log

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pbinitiative/zendmn/internal/profile"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop().Sugar()

// Init builds the process logger. PROD logs JSON, other profiles a colored console.
func Init() {
	InitWithLevel(os.Getenv("LOG_LEVEL"))
}

func InitWithLevel(level string) {
	zapLevel := zapcore.InfoLevel
	if err := zapLevel.UnmarshalText([]byte(strings.ToLower(level))); err != nil || level == "" {
		zapLevel = zapcore.InfoLevel
	}

	var conf zap.Config
	if profile.Current == profile.PROD {
		conf = zap.NewProductionConfig()
	} else {
		conf = zap.NewDevelopmentConfig()
		conf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	conf.Level = zap.NewAtomicLevelAt(zapLevel)
	conf.OutputPaths = []string{"stderr"}

	built, err := conf.Build(zap.AddCallerSkip(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %s\n", err)
		return
	}
	logger = built.Sugar()
}

// Sync flushes buffered entries.
func Sync() {
	_ = logger.Sync()
}

func withContext(ctx context.Context) *zap.SugaredLogger {
	spanContext := trace.SpanContextFromContext(ctx)
	if !spanContext.IsValid() {
		return logger
	}
	return logger.With("trace_id", spanContext.TraceID().String(), "span_id", spanContext.SpanID().String())
}

func Info(format string, args ...any) {
	logger.Infof(format, args...)
}

func Error(format string, args ...any) {
	logger.Errorf(format, args...)
}

func Infof(ctx context.Context, format string, args ...any) {
	withContext(ctx).Infof(format, args...)
}

func Debugf(ctx context.Context, format string, args ...any) {
	withContext(ctx).Debugf(format, args...)
}

func Errorf(ctx context.Context, format string, args ...any) {
	withContext(ctx).Errorf(format, args...)
}
