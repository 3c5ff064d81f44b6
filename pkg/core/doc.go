/*
Package core implements the query broker. It's built around the Bridge
structure that keeps pending queries, delivers responses and persists the
event log.

# Transactions

Every mutating call (query registration or fulfillment) is executed as a
single transaction over a cached view of the store. Changes and the events
produced are either persisted together or discarded together, requester
callback failures included.

# Events

You can subscribe to Bridge events using SubscribeForNotifications and
UnsubscribeFromNotifications. These accept channels that will be used to send
events, so you can control buffering. Channels are never closed by Bridge,
you can close them after unsubscription.

Events are sent in the order they were persisted. Be careful using these
subscriptions, failing to read from a channel blocks the dispatcher and
eventually all other Bridge operations, so never call Bridge methods from
the goroutine reading events.
*/
package core
