// Package prompt builds the single user message sent to the chat model.
//
// The layout is positional: the template's own instructions refer to the
// <esempi>, <additional_instructions> and <input> blocks in that order, so the
// exact whitespace below is part of the contract.
package prompt

import "strings"

const (
	exampleOpen  = "        <esempio>\n            "
	exampleClose = "\n        </esempio>\n"
	emptyExample = "        \n"
)

// Assemble combines template, examples, optional instructions and the
// transcript. It is pure: identical inputs give byte-identical output.
func Assemble(template string, examples []string, instructions, transcript string) string {
	var b strings.Builder
	b.WriteString(template)
	b.WriteString("\n\n")
	b.WriteString(ExamplesBlock(examples))
	b.WriteString("\n")
	b.WriteString(InstructionsBlock(instructions))
	b.WriteString("\n<input>\n    ")
	b.WriteString(NormalizeTranscript(transcript))
	b.WriteString("\n</input>\n")
	return b.String()
}

// ExamplesBlock wraps each example in <esempio>, in the given order. With no
// examples the <esempi> pair is still emitted, holding no sub-blocks.
func ExamplesBlock(examples []string) string {
	var b strings.Builder
	b.WriteString("<esempi>\n")
	if len(examples) == 0 {
		b.WriteString(emptyExample)
	}
	for _, ex := range examples {
		b.WriteString(exampleOpen)
		b.WriteString(ex)
		b.WriteString(exampleClose)
	}
	b.WriteString("</esempi>")
	return b.String()
}

// InstructionsBlock returns "" for blank instructions.
func InstructionsBlock(instructions string) string {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return ""
	}
	return "\n<additional_instructions>\n" + instructions + "\n</additional_instructions>\n"
}

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// NormalizeTranscript collapses every line break to one space and trims.
func NormalizeTranscript(transcript string) string {
	return strings.TrimSpace(newlines.Replace(transcript))
}
