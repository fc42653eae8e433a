// Package metrics exposes database query and connection pool metrics.
//
//	start := time.Now()
//	rows, err := db.QueryContext(ctx, query)
//	metrics.RecordDBQuery("resolve_channels", time.Since(start), err)
package metrics
