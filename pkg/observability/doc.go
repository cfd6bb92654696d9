/*
Package observability provides ready-made state change listeners and
instance hooks: Prometheus metrics, structured logging and a fanout that
dispatches one event to many listeners.

	metrics := observability.NewMetrics()
	metrics.MustRegister(prometheus.DefaultRegisterer)

	p := instance.NewProcessor(
		instance.WithListener(metrics),
		instance.WithListener(observability.NewLoggingListener(logger)),
		instance.WithInstanceHook(metrics.InstanceHook),
		instance.WithTickHook(metrics.TickHook),
	)
*/
package observability
