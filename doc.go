/*
Package fastserve is a static file server for HTTP/1.1 with an in-memory
response cache.

An acceptor waits on the listening socket with epoll (Linux) or kqueue
(macOS), accepts every pending connection and hands each one to a queue
shard in round-robin order. A fixed pool of workers, B per shard, takes
connections from its own shard, reads one request, answers it and closes
the connection.

Dispatch

  - a path containing '.' names a file under the root directory
  - otherwise the route table decides: unknown paths and disallowed methods
    get a 404 page, static routes serve their target file and dynamic routes
    run their handler
  - file bodies are served from an LRU cache, loading from disk on a miss

Quick Start

	cfg := config.Default()
	cfg.RootDir = "./static"

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	a.Server().Static("/", "index.html")
	a.Server().Handle("/hello", "", func(ctx *http.Context, _ string, _ any) {
		ctx.String(200, "Hello, World!")
	}, nil, "GET")

	a.Run(context.Background())

Packages

  - app: process lifecycle, logging, metrics endpoint
  - cmd/fastserve: command line interface
  - config: configuration struct, defaults and layered loading
  - core: the Server, its workers and statistics
  - core/dlist, core/hashtable, core/lru: the response cache
  - core/route: the route table
  - core/queue, core/pools: queue shards, worker pool, buffer pools
  - core/poller, core/netutil: readiness polling and the listening socket
  - core/http: request parsing and the response wire format
  - core/files: file loading and content types
  - core/codec: JSON and protobuf encoders for stats snapshots
  - core/observability: per-dispatch latency monitor
  - metrics/prom: Prometheus exporters
*/
package fastserve
