// Package rules loads rewrite rule sets from CUE.
//
// A rule set file sets a name and a map of rules keyed by rule id:
//
//	name: "simplify"
//	rules: "add-zero": {
//		priority: 1
//		pattern:     {kind: "constructor", name: "add", args: [...]}
//		replacement: {kind: "var", name: "x"}
//	}
//
// Patterns, replacements and guards use the tagged IR encoding of package
// ir; CUE's hidden fields and definitions make them short to write. Every
// rule is unified with the #Rule schema before it is compiled.
package rules
