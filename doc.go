// Package dmverify manages the client-side lifecycle of interactive device
// verification requests exchanged over encrypted direct messages.
//
// The [RequestManager] creates outbound requests, ingests inbound
// verification events from the transport's sync stream, applies the request
// state machine, schedules expiry deadlines, and notifies registered
// listeners of every state change. The cryptographic comparison itself is
// out of scope: accepting a request hands off to a [Transaction] constructed
// by the injected [TransactionFactory].
package dmverify
