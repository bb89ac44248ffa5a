// Package gateway exposes the shell coordinator to the embedded runtime and
// to the UI host.
//
// # Servers
//
//   - gRPC (server.grpc_addr): the shellbridge.v1.Bridge service used by the
//     runtime. Resolve, Send and Close are unary; Subscribe streams pushes and
//     navigations. Messages are google.protobuf.Struct values so no generated
//     code is needed.
//   - HTTP (server.http_addr): the host API the UI host drives, plus health,
//     service listing, the lifecycle ledger and Prometheus metrics.
//
// # Runtime readiness
//
// The first Subscribe installs the hub as the relay delivery function and
// reports the runtime ready, which replays any buffered deep link as a
// navigate message on that stream. Later subscribers swap the navigator.
//
// # Host API
//
//	POST /host/attach   {"host_id": "main", "args": [], "deep_link": ""}  -> {"start": "cold"}
//	POST /host/start    {"host_id": "main"}
//	POST /host/stop     {"host_id": "main"}
//	POST /host/destroy  {"host_id": "main", "finishing": true}
//	POST /host/deeplink {"url": "app://orders/42"}
//	GET  /api/services
//	GET  /api/events?limit=50
//
// A POST carrying an X-Request-ID seen within host_api.dedupe_ttl is answered
// with 208 Already Reported and not applied again.
package gateway
