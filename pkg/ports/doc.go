/*
Package ports defines the driven ports (interfaces) of the travel conversation router.

These interfaces decouple the routing core from external implementations, allowing
it to work with various storage backends, lock services and draft generators.

# Key Interfaces

  - EpisodeStore: keeps pending clarification episodes, keyed by conversation ID.
  - StateStore: reads and upserts the persisted ConversationState.
  - DistributedLocker: serializes gate mutations for one conversation across replicas.
  - DraftGenerator: turns a recall query into an itinerary or fallback text.
*/
package ports
