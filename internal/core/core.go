/*
Core composes the trading facade.

# Module
  - in-memory bus: fans broker/UI events out to the cache and the risk engine
  - state cache: keyed maps of orders/trades/positions/accounts/contracts/quotes
  - gate chain: ordered middleware in front of the gateway send capability
  - pass-throughs: send/cancel order and quote calls to the gateway layer

# Source
 1. domain events from gateway adapters
 2. outbound requests from strategies and the UI

# Produce
  - gated order requests to the gateway layer

# Sharded
  - none
*/
package core
