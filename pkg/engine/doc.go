// Package engine implements the orchestration core: a stateless
// coordinator that fans a prompt out to one or more completion models
// according to a strategy, folds the outputs into a single structured
// result, and interleaves the calls with the conversation context store.
//
// Five strategies are supported:
//
//   - sequential: each model refines the previous model's answer
//   - parallel: all models answer concurrently, then one synthesis call
//     merges the successful answers
//   - debate: fixed rounds of argument over the growing transcript,
//     closed by a conclusion call
//   - consensus: parallel plus a second fold extracting the common ground
//   - specialist: a cheap classification call routes the prompt to the
//     models best suited for its task category
package engine
