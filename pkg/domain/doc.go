/*
Package domain contains the core data model of the travel conversation router.

It defines the values that flow between the query processor, the clarification
gate and the conversation router. The package is kept pure and free of external
dependencies like I/O or persistence.

# Key Entities

  - Constraints: typed values extracted from a single query (destination, days, budget...).
  - Presence: coarse "was this topic mentioned" flags, OR-merged across turns.
  - Analysis: the query processor output (intent, recall query, missing fields).
  - Episode: a pending clarification for one conversation.
  - ConversationState: the persisted per-conversation snapshot.
*/
package domain
