// Package openrouter implements provider.Provider against an
// OpenRouter-style Chat Completions backend over HTTP. Any backend that
// speaks the /v1/chat/completions dialect works, including the bundled
// mock-backend command.
package openrouter
