// Package auth guards the runtime bridge with HS256 JWT bearer tokens.
//
// When a jwt_secret is configured, every bridge call must carry
//
//	authorization: Bearer <jwt>
//
// in its gRPC metadata. The token's "sub" claim names the runtime and is made
// available to handlers through FromContext. Without a secret the NoAuth
// interceptors attach an anonymous identity instead.
//
// Tokens are minted with JWTVerifier.Generate; the shell-bridge token command
// wraps it.
package auth
