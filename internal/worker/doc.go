// Package worker implements the view worker lifecycle and Redis Streams integration.
//
// The worker consumes render requests from a Redis Stream, renders the requested
// view against inline data or the stored graph state of the execution, and
// publishes the rendered document back to the orchestrator.
//
// Example usage:
//
//	cfg, _ := config.Load()
//	redisClient := redis.NewClient(&redis.Options{...})
//	engine := view.New(view.WithHelpers(helpers), view.WithLogger(logger))
//	states := worker.NewRedisStateStore(redisClient, cfg.StateKeyPrefix, logger)
//
//	w := worker.NewWorker(cfg, redisClient, engine, states, logger)
//	if err := w.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// A render request message carries a JSON "data" field:
//
//	{"execution_id": "exec-1", "node_id": "respond", "view": "post", "data": {...}}
//
// Results are published to the result stream; failures go to the result
// stream suffixed with ".errors". Every message is acknowledged.
//
// Health checks are provided via a separate HTTP server:
//
//	healthServer := worker.NewHealthServer(8083, redisClient, cfg.ViewsDir, logger)
//	healthServer.Start()
//	defer healthServer.Stop()
package worker
