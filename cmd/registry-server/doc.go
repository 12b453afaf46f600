/*
registry-server serves the reputation registry HTTP API.

Records are kept in the store given by --store (memory:// or
sqlite:///path/to/registry.db). Every event is logged and counted in the
Prometheus metrics. Events are also archived to S3 (--s3-bucket), a
directory (--event-dir) or an IPFS node (--ipfs-api) when configured.

Example:

	registry-server --listen-addr 0.0.0.0:8080 \
	    --store sqlite:///var/lib/registry/registry.db \
	    --s3-bucket registry-events --log-json
*/
package main
