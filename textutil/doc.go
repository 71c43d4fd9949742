// Package textutil holds the text transforms used while composing emails:
// tag stripping, entity normalization for plain-text bodies, word wrapping,
// paragraph wrapping, typographic replacements and address sanitizing.
package textutil
