// Package provider defines the completion provider contract used by the
// orchestration engine. A provider turns a prompt or an ordered message
// list into model-generated text.
//
// Two implementations ship with the server: an HTTP-backed adapter for
// OpenRouter-style Chat Completions backends (provider/openrouter) and a
// deterministic scripted provider for tests and offline runs
// (provider/scripted). Both satisfy the same two-operation contract.
package provider
