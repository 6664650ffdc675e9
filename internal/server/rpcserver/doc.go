// Package rpcserver serves the multisig keygen API over Connect.
//
// Procedures are plain unary Connect calls encoded with a JSON codec, so
// any Connect, gRPC or gRPC-Web client can reach them over h2c:
//
//	/tssd.multisig.v1.Multisig/Keygen       {"key_uid"} -> {"pub_key"}
//	/tssd.multisig.v1.Multisig/KeyPresence  {"key_uid"} -> {"presence"}
//
// The same listener serves /healthz, /readyz and, unless a dedicated
// metrics address is configured, /metrics.
package rpcserver
