/*
Package servers runs the reputation registry HTTP API.

Server wraps a handlers.Handler with request logging, health and readiness
probes, drain support for rolling deployments and an optional pprof API.
Metrics are served by a separate metrics.MetricsServer on its own address.

# Server Lifecycle

	cfg := &api.HTTPServerConfig{
	    ListenAddr:               "127.0.0.1:8080",
	    MetricsAddr:              "127.0.0.1:8090",
	    Log:                      logger,
	    DrainDuration:            45 * time.Second,
	    GracefulShutdownDuration: 30 * time.Second,
	}

	server, err := servers.New(cfg, handler, metricsSrv)
	if err != nil {
	    return err
	}
	server.RunInBackground()
	defer server.Shutdown()

/livez always reports alive. /drain marks the server not ready so that
/readyz fails and load balancers stop routing to it; /undrain reverses that.
*/
package servers
