/*
Package tripgate routes a multi-turn travel-planning dialogue: it classifies each message, extracts trip constraints, holds generation behind a clarification gate until destination, duration and budget are known, and streams progress and results as typed events.

# Concept

Every user message is a turn. The router runs the query processor, records the message on the conversation snapshot and then branches on intent: reset clears the conversation, edit and qa are delegated to intent engines, and create goes through the gate. While hard facts are missing the gate keeps a pending episode per conversation and answers with a clarification payload; once satisfied it hands the combined query to a draft generator and the resulting itinerary.v1 document is persisted as the new revision.

Stores, the draft generator and the distributed locker are ports. The Engine defaults to in-memory stores and the rule-based generator.

# Key Features

  - Clarification Gate: at most one pending episode per conversation, serialized per conversation ID.
  - Typed Events: intent_routed, stage_start, stage_progress, final_itinerary, final_text, reset_done and error, each wrapped in an envelope.
  - Output Contract: itinerary.v1 with P0 validation and P1 assumption degrade.
  - Pluggable Adapters: memory, Redis and Postgres stores; rule-based and Gemini generators.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/tripgate"
		"github.com/aretw0/tripgate/pkg/router"
	)

	func main() {
		eng := tripgate.New()
		ctx := context.Background()

		reply, err := eng.Ask(ctx, router.Request{Query: "去北京"})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(reply.Text()) // asks for duration and budget

		reply, err = eng.Ask(ctx, router.Request{
			Query:          "5天，预算3000",
			ConversationID: reply.ConversationID,
			Mode:           router.ModeResume,
		})
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(reply.Outcome) // itinerary
	}
*/
package tripgate
