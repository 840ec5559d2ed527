// Command pdffill fills a PDF form from a JSON field map and flattens it.
//
// Usage:
//
//	pdffill [options] <template.pdf> <output.pdf> <json-field-map> [xfa]
package main

import "github.com/digitorus/pdffill/cli"

func main() {
	cli.Main()
}
