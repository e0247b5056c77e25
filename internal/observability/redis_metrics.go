package observability

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var redisInstrumentationOnce sync.Once

// InstrumentRedisClient adds command, lookup and conditional-script metrics
// to the account store client. Only the first call per process installs the hook.
func InstrumentRedisClient(client redis.UniversalClient, logger *slog.Logger) {
	if client == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	redisInstrumentationOnce.Do(func() {
		hook, err := newRedisStoreHook(otel.Meter(meterName), client.PoolStats)
		if err != nil {
			logger.Warn("redis store instrumentation disabled", "error", err)
			return
		}
		client.AddHook(hook)
		logger.Info("redis store instrumentation enabled")
	})
}

type redisStoreHook struct {
	commands      metric.Int64Counter
	latency       metric.Float64Histogram
	lookups       metric.Int64Counter
	scriptResults metric.Int64Counter
}

func newRedisStoreHook(meter metric.Meter, poolStats func() *redis.PoolStats) (*redisStoreHook, error) {
	commands, err := meter.Int64Counter("redis.command.total",
		metric.WithDescription("Redis commands issued by the account store"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("redis.command.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Redis command latency in seconds"))
	if err != nil {
		return nil, err
	}
	lookups, err := meter.Int64Counter("redis.account.lookups",
		metric.WithDescription("Account hash reads by outcome"))
	if err != nil {
		return nil, err
	}
	scriptResults, err := meter.Int64Counter("redis.account.script.results",
		metric.WithDescription("Conditional account writes by outcome"))
	if err != nil {
		return nil, err
	}
	saturation, err := meter.Float64ObservableGauge("redis.pool.saturation",
		metric.WithUnit("1"),
		metric.WithDescription("Share of pooled connections in use"))
	if err != nil {
		return nil, err
	}
	if poolStats != nil {
		if _, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			stats := poolStats()
			if stats == nil || stats.TotalConns == 0 {
				return nil
			}
			used := float64(stats.TotalConns-stats.IdleConns) / float64(stats.TotalConns)
			o.ObserveFloat64(saturation, clampRatio(used))
			return nil
		}, saturation); err != nil {
			return nil, err
		}
	}
	return &redisStoreHook{commands: commands, latency: latency, lookups: lookups, scriptResults: scriptResults}, nil
}

func (h *redisStoreHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *redisStoreHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe(ctx, cmd, err)
		h.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("command", strings.ToLower(cmd.Name())),
			attribute.String("status", redisCommandStatus(err)),
		))
		return err
	}
}

func (h *redisStoreHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		for _, cmd := range cmds {
			h.observe(ctx, cmd, cmd.Err())
		}
		h.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("command", "pipeline"),
			attribute.String("status", redisCommandStatus(err)),
		))
		return err
	}
}

func (h *redisStoreHook) observe(ctx context.Context, cmd redis.Cmder, err error) {
	name := strings.ToLower(cmd.Name())
	h.commands.Add(ctx, 1, metric.WithAttributes(
		attribute.String("command", name),
		attribute.String("status", redisCommandStatus(err)),
	))
	if outcome, ok := classifyAccountLookup(cmd, err); ok {
		h.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if outcome, ok := classifyScriptResult(cmd, err); ok {
		h.scriptResults.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func redisCommandStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, redis.Nil):
		return "miss"
	case strings.Contains(strings.ToLower(err.Error()), "timeout"):
		return "timeout"
	default:
		return "error"
	}
}

func classifyAccountLookup(cmd redis.Cmder, err error) (string, bool) {
	if strings.ToLower(cmd.Name()) != "hgetall" {
		return "", false
	}
	if err != nil {
		return "error", true
	}
	mapCmd, ok := cmd.(*redis.MapStringStringCmd)
	if !ok {
		return "", false
	}
	if len(mapCmd.Val()) == 0 {
		return "miss", true
	}
	return "hit", true
}

// classifyScriptResult reads the 0/1 reply of the conditional account scripts.
// NOSCRIPT replies are skipped since the client retries them with EVAL.
func classifyScriptResult(cmd redis.Cmder, err error) (string, bool) {
	name := strings.ToLower(cmd.Name())
	if name != "eval" && name != "evalsha" {
		return "", false
	}
	if err != nil {
		if strings.HasPrefix(err.Error(), "NOSCRIPT") {
			return "", false
		}
		return "error", true
	}
	c, ok := cmd.(*redis.Cmd)
	if !ok {
		return "", false
	}
	v, convErr := c.Int64()
	if convErr != nil {
		return "", false
	}
	if v == 1 {
		return "applied", true
	}
	return "condition_failed", true
}

func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
