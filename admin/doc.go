// Package admin serves the operator HTTP API of a metadata cache.
//
// Routes under /v1 require authentication (JWT bearer or API key) and are
// authorized per action:
//
//	GET  /v1/objects/{businessKey}               describe:object
//	GET  /v1/objects/{businessKey}/children      describe:children
//	GET  /v1/tables/{table}                      describe:table
//	GET  /v1/tables/{table}/columns/{column}     describe:element
//	GET  /v1/cache/stats                         cache:stats
//	POST /v1/cache/clear                         cache:clear
//	POST /v1/cache/clear-all                     cache:clear-all
//	PUT  /v1/cache/enabled                       cache:toggle
//	POST /v1/epoch/bump                          epoch:bump
//
// Health endpoints (/healthz, /readyz, /health) and /metrics are served
// without authentication.
package admin
