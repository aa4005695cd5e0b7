// Package baseline holds the reference log-likelihood distribution that every
// message is scored against.
//
// A Distribution is built once at startup and then only read. Load fetches the
// serialized samples from a Source (local file or S3 object) and decodes JSON,
// plain text or parquet:
//
//	src, err := baseline.ParseLocation("s3://my-bucket/baseline_log_likelihoods.parquet", s3Client)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dist, err := baseline.Load(ctx, src, baseline.LoadOptions{Format: baseline.FormatAuto}, logger)
//	if err != nil {
//	    log.Fatal(err) // unreadable or empty baselines are fatal
//	}
//
//	p := dist.PValue(-5.2)
package baseline
