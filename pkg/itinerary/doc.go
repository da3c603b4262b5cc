/*
Package itinerary implements the itinerary.v1 output contract.

Fields follow a three-tier policy:

  - P0 fields (ids, schema version, destination, budget total, day and slot
    minimums, unique day_index) are hard-blocking. Validate rejects any violation.
  - P1 fields (slot risk and cost breakdown, evidence provider, URL and fetch
    time) may be missing. Degrade records one named assumption per missing field.
  - P2 fields (alternatives, theme, uncertainty notes, change summary) are cosmetic
    and never checked.

Parse runs the whole pipeline on a raw JSON document: JSON schema check, decode,
Validate, then Degrade.
*/
package itinerary
