// Package qp is the query processor: it normalizes user text, classifies the intent,
// runs both constraint extraction modes and assembles the recall query handed to
// draft generators.
package qp
