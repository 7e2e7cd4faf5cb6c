// Package normalize converts raw source payloads into canonical journal
// records.
//
// Each source keeps its native units all the way through parsing; this
// package owns the unit conversions (sleep hours to seconds, meters to
// kilometers, body-fat fraction to percent, bone grams to kilograms) and
// the presence rules. A field absent in the raw payload stays absent in
// the canonical record, and an incoming zero is treated as absent for
// every metric except intensity minutes, where zero is a real reading.
package normalize
