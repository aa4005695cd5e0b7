// Package config provides configuration management for the conformal worker.
//
// Configuration is loaded from environment variables and validated on startup.
// Defaults mirror the recognized options of the worker: thresholds 0.99/0.95,
// three retries, a ten minute run budget, a 60s visibility timeout, 20s long
// polls and batches of up to ten messages.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg)
package config
