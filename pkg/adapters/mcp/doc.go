// Package mcp exposes a processor to Model Context Protocol clients over stdio:
// tools to list block types and instances, read an instance snapshot and
// advance instances tick by tick.
package mcp
