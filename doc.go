/*
Package adnl implements the client side of the ADNL TCP transport: an
authenticated, encrypted, length-framed message channel over a plain TCP
connection, with query/answer correlation on top.

The package handles key exchange, session ciphers, frame integrity, and
query dispatch while delegating request encoding and response
interpretation to the consuming application.

# Features

  - X25519 ECDH key exchange from Ed25519 identity keys
  - AES-256-CTR session ciphers with independent send/receive keystreams
  - SHA-256 integrity check on every frame
  - TL binary serialization primitives (pkg/tl)
  - Query correlation by random 256-bit id
  - Lazy connect and reconnect-on-demand
  - Round-robin dispatch across multiple servers
  - Keep-alive pings on idle connections
  - In-flight query limiting with hysteresis
  - Persistent server lists (pkg/serverlist, loaded via NewConfigFromFile)
  - Non-blocking tagged event notifications
  - Thread-safe concurrent operations

# Quick Start

Create a client:

	server, _ := adnl.NewServerDescriptor("5.9.10.15", 48014,
		"n4VDnSCUuSpjnCyUk9e3QOOd6o0ItSWYbTnW3Wnn8wk=")

	cfg := adnl.NewConfig([]adnl.ServerDescriptor{server})

	client, err := adnl.NewClient(cfg)
	if err != nil {
		// Handle error
	}
	defer client.Close()

Send a query (the connection is dialed on first use):

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	answer, err := client.Query(ctx, encodedRequest)

Spread queries across several servers:

	rr, err := adnl.NewRoundRobin(cfg)
	if err != nil {
		// Handle error
	}
	defer rr.Close()

	answer, err := rr.Query(ctx, encodedRequest)

Monitor connection events:

	for event := range client.Events() {
		switch event.Type {
		case adnl.EventReady:
			fmt.Printf("connected to %s\n", event.Server)
		case adnl.EventClosed:
			fmt.Printf("lost %s: %v\n", event.Server, event.Err)
		case adnl.EventData:
			// Payload that matched no pending query.
		}
	}

# Architecture

The package separates concerns clearly:

Application responsibilities:
  - Encoding requests and decoding answers (the payloads are opaque here)
  - Choosing servers and loading their descriptors
  - Retry policy beyond reconnect-on-demand

Package responsibilities:
  - Connection lifecycle and the encryption handshake
  - Frame encryption, reassembly, and integrity checking
  - Matching answers to waiting callers
  - Event notifications

# Connection Flow

 1. Query() or Connect() dials the server over plain TCP
 2. An ephemeral key and random session parameters are generated;
    both stream ciphers are installed before any byte is sent
 3. The 256-byte handshake packet announces the session parameters,
    encrypted under the ECDH shared secret
 4. The server acknowledges with an empty frame; the connection is Ready
 5. Queries are sent as encrypted frames and resolved by echoed id
 6. Close() zeroes key material and fails pending queries

# Security

  - Ed25519 keys for server identity
  - X25519 ECDH for key agreement
  - AES-256-CTR for the session; SHA-256 checksums for frame integrity
  - The client is not authenticated; the handshake authenticates the
    server only

# Observability

The prometheus subpackage implements the Metrics interface with
client_golang collectors. The otel subpackage implements the Tracer
interface over OpenTelemetry spans. Both are optional; the defaults are
no-ops.
*/
package adnl
