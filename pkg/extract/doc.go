/*
Package extract turns raw travel query text into constraint data.

It offers two independent modes over separate rule tables:

  - Value mode (ValueRules.Extract) captures typed values such as the destination,
    the number of days and the budget. It is strict and feeds the recall query.
  - Presence mode (PresenceRules.Detect) only answers "was this topic mentioned".
    It is laxer and feeds the clarification gate.

The two modes can disagree for the same text. A duration written as "3日" is
present for the gate but yields no captured days value, and the reverse can also
happen. Both paths are kept on purpose and must be tested on their own.
*/
package extract
