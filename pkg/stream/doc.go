/*
Package stream provides the reactive primitives the firestream driver is built on.

Values travel as [Notification] elements over plain Go channels. A channel
returned by Subscribe is closed when the source completes, after a terminal
error notification, or when the subscriber's context is done.

# Primitives

  - Memory: a lazy multicast source over a subscribe/unsubscribe style
    [Producer]. The producer is started on the first subscriber, stopped when
    the last one leaves, and the latest value is replayed to late subscribers.
  - Single: a single-shot result. The work starts eagerly when the Single is
    created; subscribing only observes it.
  - Hub: a hot fan-out without replay. Subscribers only see what is published
    after they subscribed.

Operators ([Filter], [Transform], [Concat]) follow the same conventions: they
take a context, never block the producer side once it is done, and close
their output when the input is exhausted.
*/
package stream
