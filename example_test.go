package tripgate_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/tripgate"
	"github.com/aretw0/tripgate/pkg/router"
)

// ExampleEngine_Ask shows the two-turn clarification flow with the default in-memory engine.
func ExampleEngine_Ask() {
	eng := tripgate.New()
	ctx := context.Background()

	reply, err := eng.Ask(ctx, router.Request{Query: "去北京"})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.Outcome)

	reply, err = eng.Ask(ctx, router.Request{
		Query:          "5天，预算3000",
		ConversationID: reply.ConversationID,
		Mode:           router.ModeResume,
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.Outcome)
	// Output:
	// clarification
	// itinerary
}
