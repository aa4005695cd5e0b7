// Package worker implements the bounded-duration conformal routing loop.
//
// A run receives batches from the source queue, scores every message against
// the baseline, routes it by p-value and forwards the annotated body to the
// safe, standard or low-confidence queue. A message is deleted from the
// source only after its annotated copy has been sent, so delivery is
// at-least-once.
//
// Example usage:
//
//	cfg, _ := config.Load()
//	policy := retry.NewPolicy(cfg.RetryCount, cfg.RetryBaseDelay, logger)
//	w, err := worker.NewWorker(cfg.WorkerID, worker.OptionsFromConfig(cfg),
//	    queueClient, scorer, routerInstance, policy, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := w.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// A run stops when the deadline passes between batches, when a receive
// returns no messages, or on the first failure. A batch in flight when the
// deadline passes is finished first (StateDraining).
//
// Health checks and Prometheus metrics are served by a separate HTTP server:
//
//	healthServer := worker.NewHealthServer(8082, queueClient, w, logger)
//	healthServer.Start()
//	defer healthServer.Stop()
package worker
