/*
Package notify broadcasts service events to every node of a deployment.

Services publish "cache.clean.<fullName>" after each mutation so peers drop cached results.
Implementations:

  - Local: in-process bus, also records broadcasts for tests
  - NATS: core NATS subjects named after the event
  - AMQP: RabbitMQ topic exchange with one exclusive queue per subscriber

Notifiers that can also receive events implement Subscriber.
*/
package notify
