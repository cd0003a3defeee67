// Package log is a thin request-aware facade over zap. Handlers call
// Info/Audit/Security/Error with the fiber context so every line carries
// the request id, method, path and status alongside the action name.
package log

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base = zap.Must(zap.NewProduction())

// Setup reconfigures the sink to stdout plus an optional file. Called once
// from main; tests keep the default.
func Setup(logFile string) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.OutputPaths = []string{"stdout"}
	if logFile != "" {
		cfg.OutputPaths = append(cfg.OutputPaths, logFile)
	}
	l, err := cfg.Build()
	if err != nil {
		base.Warn("log.setup.fail", zap.Error(err))
		return
	}
	base = l
}

func requestFields(c *fiber.Ctx, action, kind string, fields map[string]any) []zap.Field {
	fs := []zap.Field{zap.String("action", action), zap.String("kind", kind)}
	if c != nil {
		fs = append(fs,
			zap.String("ip", c.IP()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
		)
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			fs = append(fs, zap.String("req_id", rid))
		}
	}
	for k, v := range fields {
		fs = append(fs, zap.Any(k, v))
	}
	return fs
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	base.Info(action, requestFields(c, action, "info", fields)...)
}

// Audit marks state-changing actions an operator may need to trace later.
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	base.Info(action, requestFields(c, action, "audit", fields)...)
}

// Security marks rejected input, throttling and access denials.
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	base.Warn(action, requestFields(c, action, "security", fields)...)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	fs := requestFields(c, action, "error", fields)
	if err != nil {
		fs = append(fs, zap.Error(err))
	}
	base.Error(action, fs...)
}
