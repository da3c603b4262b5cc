/*
Package clarify implements the clarification gate.

The gate blocks draft generation until every hard-required constraint
(destination, duration, budget) has been mentioned. Per conversation it is in one
of two states:

  - NoPending: no episode is stored.
  - Pending: an episode holds the initial query, the OR-merged presence flags and
    the followup answers collected so far.

Episodes live in an injected ports.EpisodeStore, so their durability is a
deployment choice: the memory store drops them on restart, the Redis store keeps
them until their TTL expires.

Every mutation for a conversation runs under a per-conversation lock. Locks are
reference counted and dropped once idle. An optional ports.DistributedLocker
extends the exclusion across replicas.
*/
package clarify
