package main

import (
	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideTracer,
		),
		fx.Invoke(func(opentracing.Tracer) {}),
		storageModule(),
		notifyModule(),
		marketModule(),
		httpModule(),
	)
	app.Run()
}
