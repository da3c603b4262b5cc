/*
Package router turns one user message into a stream of typed events.

Every turn starts with an intent_routed event. What follows depends on the
classified intent:

  - reset: the pending episode and the persisted itinerary are dropped (reset_done).
  - edit, qa: handled by an IntentEngine (final_text).
  - create: the clarification gate decides between asking for missing
    constraints (stage_start, stage_progress) and generating a draft
    (final_itinerary or final_text).

Generation failures become a single error event. State store failures are
logged and reported through the OnPersist hook without interrupting the stream.
*/
package router
